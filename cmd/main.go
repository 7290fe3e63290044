// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"tw-geodata/internal/api"
	"tw-geodata/internal/geoset"
	"tw-geodata/internal/logger"
	"tw-geodata/internal/metrics"
	"tw-geodata/internal/middleware"
	"tw-geodata/internal/migrate"
	"tw-geodata/internal/mmdb"
	"tw-geodata/internal/store"
	"tw-geodata/internal/utils"
	"tw-geodata/internal/version"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Info("starting", "commit", version.Commit)
	apiBase := os.Getenv("API_BASE")
	if apiBase == "" {
		apiBase = "/api"
	}
	l.Debug("config_api_base", "base", apiBase)

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	l.Info("db_open_ok")
	if err := db.Ping(); err != nil {
		l.Error("db_ping_error", "err", err)
	} else {
		l.Info("db_ping_ok")
	}
	st := store.AttachDB(db)
	if err := migrate.EnsureSchema(db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}

	// 背景：mmdb 仅服务 /locate 与 /whereami；缺失时坐标类接口降级为 404
	mmdbPath := os.Getenv("MMDB_PATH")
	if mmdbPath == "" {
		mmdbPath = filepath.Join("data", "mmdb", "GeoLite2-City.mmdb")
	}
	l.Debug("config_mmdb_path", "path", mmdbPath)
	var mr *mmdb.Reader
	if r, err := mmdb.Open(mmdbPath); err == nil {
		mr = r
		defer mr.Close()
		l.Info("mmdb_ready", "path", mmdbPath)
	} else {
		l.Error("mmdb_open_error", "err", err)
	}

	geoDir := os.Getenv("GEOSET_DIR")
	if geoDir == "" {
		geoDir = filepath.Join("data", "geoset")
	}
	l.Debug("config_geoset_dir", "dir", geoDir)

	// 区域集合动态索引：目录为空时先从数据库物化 .geo 文件，再整体加载并热切换
	var dix geoset.DynamicIndex
	// 被替换的索引延迟释放，等待在途查询离开旧缓冲区
	swapIndex := func(ix *geoset.Index) {
		if old, ok := dix.Swap(ix).(*geoset.Index); ok && old != nil {
			go func() {
				time.Sleep(30 * time.Second)
				old.Close()
			}()
		}
		metrics.IndexRegions.Set(float64(len(ix.Sets())))
	}
	go func() {
		for {
			ents, _ := os.ReadDir(geoDir)
			hasGeo := false
			for _, e := range ents {
				if strings.HasSuffix(e.Name(), ".geo") {
					hasGeo = true
					break
				}
			}
			if !hasGeo || os.Getenv("BUILD_GEOSET_ON_BOOT") == "true" {
				if err := geoset.BuildFilesFromDB(geoDir, db); err != nil {
					l.Error("geoset_build_error", "err", err)
				} else {
					l.Info("geoset_build_ok")
				}
			}
			ix, err := geoset.LoadDir(geoDir)
			if err != nil {
				l.Error("geoset_load_error", "err", err)
				time.Sleep(2 * time.Second)
				continue
			}
			swapIndex(ix)
			l.Info("geoset_ready", "regions", len(ix.Sets()))
			break
		}
	}()

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(st, rc, &dix, mr)
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	mux.Handle(apiBase+"/metrics", metrics.Handler())
	mux.HandleFunc(apiBase+"/reload", func(w http.ResponseWriter, r *http.Request) {
		t := r.Header.Get("x-admin-token")
		if t == "" || t != os.Getenv("ADMIN_TOKEN") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if err := geoset.BuildFilesFromDB(geoDir, db); err != nil {
			l.Error("geoset_build_error", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		ix, err := geoset.LoadDir(geoDir)
		if err != nil {
			l.Error("geoset_load_error", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		swapIndex(ix)
		metrics.IndexReloadsTotal.Inc()
		l.Info("geoset_reloaded", "regions", len(ix.Sets()))
		w.WriteHeader(http.StatusNoContent)
	})

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler}
	tlsEnable := os.Getenv("TLS_ENABLE")
	if tlsEnable == "" || tlsEnable == "true" {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join("data", "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join("data", "certs", "server.key")
		}
		_ = utils.EnsureSelfSignedCert(certPath, keyPath, "tw-geodata.local")
		// 可选：启动HTTP重定向到HTTPS（不改变HTTPS运行端口）
		if os.Getenv("TLS_REDIRECT_ENABLE") == "true" {
			redirAddr := os.Getenv("TLS_REDIRECT_ADDR")
			if redirAddr == "" {
				redirAddr = ":80"
			}
			go func() {
				httpRedir := http.NewServeMux()
				httpRedir.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
					host := r.Host
					httpsPort := strings.TrimPrefix(addr, ":")
					baseHost := host
					if i := strings.LastIndex(host, ":"); i != -1 {
						baseHost = host[:i]
					}
					targetHost := baseHost
					if httpsPort != "" {
						targetHost = baseHost + ":" + httpsPort
					}
					target := "https://" + targetHost + r.URL.RequestURI()
					http.Redirect(w, r, target, http.StatusMovedPermanently)
					l.Debug("http_redirect", "from", r.Host, "to", target)
				})
				l.Info("http_redirect_listening", "addr", redirAddr, "to", "https"+addr)
				_ = http.ListenAndServe(redirAddr, logger.AccessMiddleware(l)(httpRedir))
			}()
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		_ = s.ListenAndServeTLS(certPath, keyPath)
		return
	}
	l.Info("listening", "addr", addr)
	_ = s.ListenAndServe()
}

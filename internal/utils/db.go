package utils

import (
	"database/sql"
	"os"
	"strconv"

	_ "github.com/lib/pq"
)

// OpenPostgres：使用显式 DSN 打开连接，保留测试与手工注入场景
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	return db, nil
}

// BuildPostgresDSNFromEnv：按环境变量拼接 DSN
// 约束：缺省值面向本机开发；生产环境必须显式配置
func BuildPostgresDSNFromEnv() string {
	host := os.Getenv("PG_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("PG_PORT")
	if port == "" {
		port = "5432"
	}
	user := os.Getenv("PG_USER")
	if user == "" {
		user = "postgres"
	}
	pass := os.Getenv("PG_PASSWORD")
	db := os.Getenv("PG_DB")
	if db == "" {
		db = "geodata"
	}
	ssl := os.Getenv("PG_SSLMODE")
	if ssl == "" {
		ssl = "disable"
	}
	dsn := "postgres://" + user
	if pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + host + ":" + port + "/" + db + "?sslmode=" + ssl
	return dsn
}

// OpenPostgresFromEnv：从环境变量打开连接并配置连接池
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := OpenPostgres(BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	maxOpen := 50
	maxIdle := 25
	if v := os.Getenv("PG_MAX_OPEN_CONNS"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			maxOpen = n
		}
	}
	if v := os.Getenv("PG_MAX_IDLE_CONNS"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			maxIdle = n
		}
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return db, nil
}

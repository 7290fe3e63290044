package ipallow

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
)

// 文档注释：IP/CIDR 白名单中间件
// 背景：内网部署时整站仅对运维网段与指定调试 IP 开放；其余来源统一 403。
// 约束：
// 1) 不依赖项目内部代码，提供独立包以便在其他项目直接复用；
// 2) 支持 IPv4/IPv6 CIDR；
// 3) 真实来源 IP 以 RemoteAddr 为准；如需识别上游真实 IP，请通过 IPALLOW_REAL_IP_HEADER 指定。
type Middleware struct {
	l            *slog.Logger
	allowIPs     map[string]struct{}
	allowCIDRs   []*net.IPNet
	realIPHeader string
	mu           sync.RWMutex
}

// NewFromEnv：按环境变量构建中间件
// 环境变量：
// IPALLOW_ENABLE=true                     是否启用白名单
// IPALLOW_IPS=1.2.3.4,5.6.7.8            允许的单 IP 列表（逗号分隔）
// IPALLOW_CIDRS=10.0.0.0/8,...           允许的 CIDR 列表（逗号分隔，支持 v4/v6）
// IPALLOW_LOCAL=true                      允许 127.0.0.1/::1（本地开发）
// IPALLOW_REAL_IP_HEADER=X-Forwarded-For  指定上游真实 IP 头（首个有效 IP 生效）
func NewFromEnv(l *slog.Logger) *Middleware {
	m := &Middleware{l: l, allowIPs: map[string]struct{}{}, realIPHeader: strings.TrimSpace(os.Getenv("IPALLOW_REAL_IP_HEADER"))}
	if s := os.Getenv("IPALLOW_IPS"); s != "" {
		for _, p := range strings.Split(s, ",") {
			p = strings.TrimSpace(p)
			if ip := net.ParseIP(p); ip != nil {
				m.allowIPs[ip.String()] = struct{}{}
			}
		}
	}
	if s := os.Getenv("IPALLOW_CIDRS"); s != "" {
		for _, c := range strings.Split(s, ",") {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			if _, n, err := net.ParseCIDR(c); err == nil {
				m.allowCIDRs = append(m.allowCIDRs, n)
			}
		}
	}
	if os.Getenv("IPALLOW_LOCAL") == "true" {
		m.allowIPs["127.0.0.1"] = struct{}{}
		m.allowIPs["::1"] = struct{}{}
	}
	return m
}

// Wrap：生成 http.Handler 中间件；未启用时透传
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if os.Getenv("IPALLOW_ENABLE") != "true" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := m.extractIP(r)
		if ip == nil {
			m.l.Debug("ipallow_block", "reason", "no_ip")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if m.allowed(ip) {
			next.ServeHTTP(w, r)
			return
		}
		m.l.Debug("ipallow_block", "ip", ip.String())
		w.WriteHeader(http.StatusForbidden)
	})
}

// allowed：判断 IP 是否在允许集合
func (m *Middleware) allowed(ip net.IP) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.allowIPs[ip.String()]; ok {
		return true
	}
	for _, n := range m.allowCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// extractIP：解析请求来源 IP；优先指定头的首个有效 IP
func (m *Middleware) extractIP(r *http.Request) net.IP {
	if m.realIPHeader != "" {
		if raw := r.Header.Get(m.realIPHeader); raw != "" {
			first := strings.TrimSpace(strings.Split(raw, ",")[0])
			if ip := net.ParseIP(first); ip != nil {
				return ip
			}
		}
	}
	host := r.RemoteAddr
	if strings.Contains(host, ":") {
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
	}
	return net.ParseIP(host)
}

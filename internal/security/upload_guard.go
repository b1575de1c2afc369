package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// allowedSchemes はアップロード先URLとして許可するスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks はアップロード先として拒否するネットワーク範囲。
// safeurlはDNS解決後のIPアドレスもDialerで検証するため、ここでは解決前の静的チェックにだけ使う。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		// プライベートIPアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック
		"127.0.0.0/8",
		// リンクローカル（クラウドのメタデータIPを含む）
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// UploadGuard はバックエンドが発行した直接アップロード先URLを検証する。
// アップロード先はサーバーのレスポンスで指定されるため、内部ネットワークや
// 想定外のホストにファイルを送らないようにする。
type UploadGuard struct {
	allowedHosts []string
}

// NewUploadGuard はUploadGuardを生成する。
// allowedHostsを指定した場合、ホスト名がいずれかに一致するか、そのサブドメインである場合のみ許可する
// （例: "blob.core.windows.net"）。空の場合はホスト名を制限しない。
func NewUploadGuard(allowedHosts ...string) *UploadGuard {
	hosts := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		h = strings.ToLower(strings.Trim(strings.TrimSpace(h), "."))
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return &UploadGuard{allowedHosts: hosts}
}

// NewSafeClient はアップロード用のSSRF防止付きHTTPクライアントを生成する。
// プライベート・ループバック・リンクローカルのアドレスへの接続はsafeurlが接続時に拒否する。
func (g *UploadGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateURL はアップロード先URLを送信前に検証する。DNS解決は行わない。
func (g *UploadGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("empty host in URL")
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
	} else if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}

	if !g.hostAllowed(host) {
		return fmt.Errorf("host not allowed for uploads: %s", host)
	}
	return nil
}

func (g *UploadGuard) hostAllowed(host string) bool {
	if len(g.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range g.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

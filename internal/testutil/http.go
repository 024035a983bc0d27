package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"
)

// HTTPRoundTripper 重写 HTTP 请求到测试服务器
// 客户端可以使用真实的服务地址，请求实际发往 httptest 服务器
type HTTPRoundTripper struct {
	base *url.URL          // 测试服务器 URL
	next http.RoundTripper // 下一个 Transport
}

// RoundTrip 实现 http.RoundTripper 接口
func (t *HTTPRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := *req
	u := *req.URL
	u.Scheme = t.base.Scheme
	u.Host = t.base.Host
	cloned.URL = &u
	return t.next.RoundTrip(&cloned)
}

// NewTestClient 创建测试用 HTTP 客户端
// 自动将请求重定向到测试服务器
func NewTestClient(ts *httptest.Server) *http.Client {
	return NewTestClientWithTimeout(ts, 5*time.Second)
}

// NewTestClientWithTimeout 创建带超时的测试 HTTP 客户端
func NewTestClientWithTimeout(ts *httptest.Server, timeout time.Duration) *http.Client {
	u, _ := url.Parse(ts.URL)
	return &http.Client{
		Timeout: timeout,
		Transport: &HTTPRoundTripper{
			base: u,
			next: ts.Client().Transport,
		},
	}
}

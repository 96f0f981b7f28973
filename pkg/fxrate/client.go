package fxrate

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// ==================== 汇率客户端 ====================

// Rate 一次汇率报价
type Rate struct {
	Value     decimal.Decimal // JPY / USD
	FetchedAt time.Time
}

// Config 汇率客户端配置
type Config struct {
	BaseURL string        // 缺省 https://open.er-api.com
	TTL     time.Duration // 缓存时长，缺省 10 分钟
	Timeout time.Duration // 单次调用超时，缺省 10s
}

// Client USD→JPY 汇率客户端，带 TTL 缓存
// 上游短暂不可用时返回缓存内的最后一次成功结果
type Client struct {
	http *resty.Client
	ttl  time.Duration

	mu     sync.RWMutex
	cached *Rate
}

// NewClient 创建汇率客户端
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://open.er-api.com"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)

	return &Client{http: client, ttl: cfg.TTL}
}

type rateResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// CurrentRate 取当前 JPY/USD 汇率
// 缓存未过期直接返回；过期则刷新，刷新失败时退回旧值
func (c *Client) CurrentRate(ctx context.Context) (*Rate, error) {
	c.mu.RLock()
	cached := c.cached
	c.mu.RUnlock()

	if cached != nil && time.Since(cached.FetchedAt) < c.ttl {
		return cached, nil
	}

	fresh, err := c.fetch(ctx)
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.cached = fresh
	c.mu.Unlock()
	return fresh, nil
}

func (c *Client) fetch(ctx context.Context) (*Rate, error) {
	var result rateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/v6/latest/USD")
	if err != nil {
		return nil, fmt.Errorf("请求汇率接口失败: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("汇率接口返回异常状态 %d: %s", resp.StatusCode(), resp.String())
	}
	if result.Result != "success" {
		return nil, fmt.Errorf("汇率接口返回失败结果: %s", result.Result)
	}

	jpy, ok := result.Rates["JPY"]
	if !ok || jpy <= 0 {
		return nil, fmt.Errorf("汇率接口未返回有效的 JPY 汇率")
	}

	return &Rate{
		Value:     decimal.NewFromFloat(jpy),
		FetchedAt: time.Now(),
	}, nil
}

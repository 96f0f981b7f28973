package ebay

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// ==================== 客户端 ====================

// Config eBay 客户端配置
type Config struct {
	BaseURL     string        // 缺省 https://api.ebay.com
	AccessToken string        // OAuth access token，由外部刷新注入
	Timeout     time.Duration // 单次调用超时，缺省 15s
}

// Client eBay Sell API 客户端
// 覆盖发布线（Inventory/Offer）与订单线（Fulfillment）两组接口
type Client struct {
	http *resty.Client
}

// NewClient 创建 eBay 客户端
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.ebay.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Content-Language", "en-US")
	client.SetAuthToken(cfg.AccessToken)

	return &Client{http: client}
}

// ==================== Inventory / Offer ====================

// inventoryItemBody 库存条目请求体
type inventoryItemBody struct {
	Product struct {
		Title string `json:"title"`
	} `json:"product"`
	Availability struct {
		ShipToLocationAvailability struct {
			Quantity int `json:"quantity"`
		} `json:"shipToLocationAvailability"`
	} `json:"availability"`
}

// PutInventoryItem 按 SKU 幂等创建/更新库存条目
func (c *Client) PutInventoryItem(ctx context.Context, sku, title string, quantity int) error {
	var body inventoryItemBody
	body.Product.Title = title
	body.Availability.ShipToLocationAvailability.Quantity = quantity

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Put(fmt.Sprintf("/sell/inventory/v1/inventory_item/%s", sku))
	if err != nil {
		return newAPIError("PutInventoryItem", LayerInventory, 0, err.Error())
	}
	if resp.StatusCode() != http.StatusNoContent && resp.StatusCode() != http.StatusOK {
		return newAPIError("PutInventoryItem", LayerInventory, resp.StatusCode(), resp.String())
	}
	return nil
}

// offerBody 报价请求体
type offerBody struct {
	SKU               string `json:"sku"`
	MarketplaceID     string `json:"marketplaceId"`
	Format            string `json:"format"`
	AvailableQuantity int    `json:"availableQuantity"`
	PricingSummary    struct {
		Price struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"price"`
	} `json:"pricingSummary"`
}

// CreateOffer 创建报价草稿，返回 offer id
func (c *Client) CreateOffer(ctx context.Context, sku, priceUSD string, quantity int) (string, error) {
	body := offerBody{
		SKU:               sku,
		MarketplaceID:     "EBAY_US",
		Format:            "FIXED_PRICE",
		AvailableQuantity: quantity,
	}
	body.PricingSummary.Price.Value = priceUSD
	body.PricingSummary.Price.Currency = "USD"

	var result struct {
		OfferID string `json:"offerId"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/sell/inventory/v1/offer")
	if err != nil {
		return "", newAPIError("CreateOffer", LayerOffer, 0, err.Error())
	}
	if resp.StatusCode() != http.StatusCreated {
		return "", newAPIError("CreateOffer", LayerOffer, resp.StatusCode(), resp.String())
	}
	return result.OfferID, nil
}

// CheckOfferExists 核对报价是否仍存在（悬挂补偿用）
func (c *Client) CheckOfferExists(ctx context.Context, offerID string) (bool, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/sell/inventory/v1/offer/%s", offerID))
	if err != nil {
		return false, newAPIError("CheckOfferExists", LayerOffer, 0, err.Error())
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, newAPIError("CheckOfferExists", LayerOffer, resp.StatusCode(), resp.String())
	}
}

// ==================== Fulfillment ====================

// fulfillmentBody 物流回传请求体
type fulfillmentBody struct {
	LineItems []struct {
		LineItemID string `json:"lineItemId"`
	} `json:"lineItems"`
	ShippingCarrierCode string `json:"shippingCarrierCode"`
	TrackingNumber      string `json:"trackingNumber"`
}

// UploadTracking 回传物流单号
func (c *Client) UploadTracking(ctx context.Context, orderKey, carrierCode, trackingNumber string) error {
	body := fulfillmentBody{
		ShippingCarrierCode: carrierCode,
		TrackingNumber:      trackingNumber,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(fmt.Sprintf("/sell/fulfillment/v1/order/%s/shipping_fulfillment", orderKey))
	if err != nil {
		return newAPIError("UploadTracking", LayerFulfillment, 0, err.Error())
	}
	if resp.StatusCode() != http.StatusCreated {
		return newAPIError("UploadTracking", LayerFulfillment, resp.StatusCode(), resp.String())
	}
	return nil
}

// CheckTrackingUploaded 幂等核对物流是否已回传
// 歧义失败（超时）后的恢复路径依赖这里
func (c *Client) CheckTrackingUploaded(ctx context.Context, orderKey string) (bool, error) {
	var result struct {
		Total int `json:"total"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("/sell/fulfillment/v1/order/%s/shipping_fulfillment", orderKey))
	if err != nil {
		return false, newAPIError("CheckTrackingUploaded", LayerFulfillment, 0, err.Error())
	}
	if resp.StatusCode() != http.StatusOK {
		return false, newAPIError("CheckTrackingUploaded", LayerFulfillment, resp.StatusCode(), resp.String())
	}
	return result.Total > 0, nil
}

// OrderDetail 订单详情
type OrderDetail struct {
	OrderID string `json:"orderId"`
	Status  string `json:"orderFulfillmentStatus"`
}

// GetOrder 查询订单详情
func (c *Client) GetOrder(ctx context.Context, orderKey string) (*OrderDetail, error) {
	var result OrderDetail
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("/sell/fulfillment/v1/order/%s", orderKey))
	if err != nil {
		return nil, newAPIError("GetOrder", LayerFulfillment, 0, err.Error())
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, newAPIError("GetOrder", LayerFulfillment, resp.StatusCode(), resp.String())
	}
	return &result, nil
}

package client

import (
	"context"
)

type hobbiesResponse struct {
	Hobbies []string `json:"hobbies"`
}

// LoadHobbies 拉取爱好候选列表
func (c *Client) LoadHobbies(ctx context.Context) ([]string, error) {
	var resp hobbiesResponse
	if err := c.getJSON(ctx, APILoadHobbies, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Hobbies, nil
}

type productsResponse struct {
	Products []PlanInfo `json:"products"`
}

// LoadProducts 拉取产品档位列表
func (c *Client) LoadProducts(ctx context.Context) ([]PlanInfo, error) {
	var resp productsResponse
	if err := c.getJSON(ctx, APILoadProducts, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

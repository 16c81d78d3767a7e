package catalog

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"wxt-client-go/internal/client"
	"wxt-client-go/internal/config"
	"wxt-client-go/internal/logger"
)

const (
	cacheKeyHobbies  = "hobbies"
	cacheKeyProducts = "products"
)

// Service 目录数据(爱好列表、产品档位)的读取入口。
// 这些数据几乎不变，拉一次之后进程内缓存一段时间。
type Service struct {
	api   *client.Client
	cache *gocache.Cache
	log   zerolog.Logger
}

func New(api *client.Client, cfg *config.CatalogConfig) *Service {
	return &Service{
		api:   api,
		cache: gocache.New(cfg.CacheExpire(), cfg.CacheCleanup()),
		log:   logger.Component("Catalog"),
	}
}

// Hobbies 兴趣爱好候选列表，命中缓存时不触网
func (s *Service) Hobbies(ctx context.Context) ([]string, error) {
	if cached, ok := s.cache.Get(cacheKeyHobbies); ok {
		return append([]string(nil), cached.([]string)...), nil
	}

	hobbies, err := s.api.LoadHobbies(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(cacheKeyHobbies, hobbies)
	s.log.Debug().Int("count", len(hobbies)).Msg("爱好列表已缓存")
	return append([]string(nil), hobbies...), nil
}

// Products 产品档位列表
func (s *Service) Products(ctx context.Context) ([]client.PlanInfo, error) {
	if cached, ok := s.cache.Get(cacheKeyProducts); ok {
		return append([]client.PlanInfo(nil), cached.([]client.PlanInfo)...), nil
	}

	products, err := s.api.LoadProducts(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(cacheKeyProducts, products)
	s.log.Debug().Int("count", len(products)).Msg("产品列表已缓存")
	return append([]client.PlanInfo(nil), products...), nil
}

// Invalidate 清空缓存，下次读取重新触网
func (s *Service) Invalidate() {
	s.cache.Flush()
}

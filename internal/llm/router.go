package llm

import (
	"fmt"
	"sync"

	"github.com/timmy/quill/internal/config"
	"github.com/timmy/quill/internal/domain"
	"github.com/timmy/quill/internal/logger"
)

// Resolution is the outcome of routing a model: the client to call and the
// model it will actually serve.
type Resolution struct {
	Client         Client
	Family         string
	RequestedModel string
	ServedModel    string
	Substituted    bool
}

// Router maps model identifiers to provider clients. Families are probed
// once at construction; a family that fails to initialize stays unavailable
// for the life of the process.
type Router struct {
	mu          sync.RWMutex
	order       []string
	clients     map[string]Client
	unavailable map[string]error
}

// NewRouter creates an empty router with the given family preference order.
func NewRouter(order []string) *Router {
	if len(order) == 0 {
		order = []string{config.FamilyOpenAI, config.FamilyAnthropic}
	}
	return &Router{
		order:       append([]string(nil), order...),
		clients:     make(map[string]Client),
		unavailable: make(map[string]error),
	}
}

// NewRouterFromConfig probes every configured family and registers the ones
// that initialize. Families without credentials are logged and skipped.
func NewRouterFromConfig(cfg *config.ProvidersConfig) *Router {
	r := NewRouter(cfg.Order)
	for _, family := range r.order {
		var (
			client Client
			err    error
		)
		switch family {
		case config.FamilyOpenAI:
			client, err = NewOpenAIClient(&cfg.OpenAI)
		case config.FamilyAnthropic:
			client, err = NewAnthropicClient(&cfg.Anthropic)
		default:
			err = fmt.Errorf("unknown provider family %q", family)
		}
		if err != nil {
			logger.Warn("Provider family unavailable: family=%s, error=%v", family, err)
			r.MarkUnavailable(family, err)
			continue
		}
		r.Register(client)
		logger.Info("Registered provider family: family=%s", family)
	}
	return r
}

// Register makes a client available under its family.
func (r *Router) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.Family()] = c
	delete(r.unavailable, c.Family())
}

// MarkUnavailable records why a family could not be initialized.
func (r *Router) MarkUnavailable(family string, reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, family)
	r.unavailable[family] = reason
}

// Families reports availability per family in preference order.
func (r *Router) Families() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(r.order))
	for _, f := range r.order {
		_, ok := r.clients[f]
		out[f] = ok
	}
	return out
}

// Resolve picks the client for model. When the declared family is
// unavailable the first available family in preference order serves the
// same category slot instead.
func (r *Router) Resolve(model string) (*Resolution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	declared := FamilyOf(model)
	if c, ok := r.clients[declared]; ok {
		return &Resolution{Client: c, Family: declared, RequestedModel: model, ServedModel: model}, nil
	}

	for _, family := range r.order {
		c, ok := r.clients[family]
		if !ok || family == declared {
			continue
		}
		return &Resolution{
			Client:         c,
			Family:         family,
			RequestedModel: model,
			ServedModel:    SlotModel(family, model),
			Substituted:    true,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, model)
}

// IsAvailable reports whether Resolve would succeed. It never fails.
func (r *Router) IsAvailable(model string) bool {
	_, err := r.Resolve(model)
	return err == nil
}

// ListAvailableModels returns the catalog models that can be served, marking
// the ones served by a substitute family. Empty when no family is available.
func (r *Router) ListAvailableModels() []domain.ModelDescriptor {
	models := Models()
	out := make([]domain.ModelDescriptor, 0, len(models))
	for _, m := range models {
		res, err := r.Resolve(m.ID)
		if err != nil {
			continue
		}
		d := m.ModelDescriptor
		if res.Substituted {
			d.Name = fmt.Sprintf("%s (via %s)", d.Name, res.Family)
			d.Family = res.Family
			d.Substituted = true
		}
		out = append(out, d)
	}
	return out
}

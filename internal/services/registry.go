package services

import (
	"github.com/fyrsmithlabs/memoryd/internal/embeddings"
	"github.com/fyrsmithlabs/memoryd/internal/memory"
	"github.com/fyrsmithlabs/memoryd/internal/quota"
	"github.com/fyrsmithlabs/memoryd/internal/tenantstore"
)

// Registry provides access to all memoryd services.
// Use accessor methods to retrieve individual services.
type Registry interface {
	Engine() *embeddings.Engine
	Store() *tenantstore.Store
	Memory() *memory.Service
	Quota() *quota.Gate
}

// Options configures the registry with service instances.
type Options struct {
	Engine *embeddings.Engine
	Store  *tenantstore.Store
	Memory *memory.Service
	Quota  *quota.Gate
}

// registry is the concrete implementation of Registry.
type registry struct {
	engine *embeddings.Engine
	store  *tenantstore.Store
	memory *memory.Service
	quota  *quota.Gate
}

// NewRegistry creates a new service registry.
func NewRegistry(opts Options) Registry {
	return &registry{
		engine: opts.Engine,
		store:  opts.Store,
		memory: opts.Memory,
		quota:  opts.Quota,
	}
}

func (r *registry) Engine() *embeddings.Engine { return r.engine }
func (r *registry) Store() *tenantstore.Store  { return r.store }
func (r *registry) Memory() *memory.Service    { return r.memory }
func (r *registry) Quota() *quota.Gate         { return r.quota }

package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/edukit/notify/pkg/directory"
	"github.com/edukit/notify/pkg/logger"
)

// Resolver computes the audience for one event type: who, within the
// organization, should learn about the entity. Resolvers answer only the
// audience question; preferences and channel policy are applied later by the
// orchestrator.
type Resolver interface {
	Resolve(ctx context.Context, orgID string, entity Entity, actor *directory.User) ([]directory.User, error)
}

// ResolverFunc adapts a plain function into a Resolver.
type ResolverFunc func(ctx context.Context, orgID string, entity Entity, actor *directory.User) ([]directory.User, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, orgID string, entity Entity, actor *directory.User) ([]directory.User, error) {
	return f(ctx, orgID, entity, actor)
}

// Registry maps event types to resolvers. Lookup tries the exact type first,
// then a "prefix.*" pattern. Event types with no resolver fall back to the
// organization's administrators, so an unrouted event degrades to an admin
// notice instead of vanishing.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
	dir       directory.Directory
	log       *slog.Logger
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used for resolver failures.
func WithRegistryLogger(log *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRegistry creates an empty registry backed by the given user directory.
func NewRegistry(dir directory.Directory, opts ...RegistryOption) *Registry {
	r := &Registry{
		resolvers: make(map[string]Resolver),
		dir:       dir,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds a resolver to an event type or a "prefix.*" pattern.
// Registering the same key twice replaces the earlier resolver.
func (r *Registry) Register(eventType string, resolver Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[eventType] = resolver
}

// Resolve returns the audience for the event. It never fails outward: a
// resolver error, like a missing resolver, falls back to the organization's
// administrators, and a failure there yields an empty audience. The result is
// deduplicated by user id and contains only active users with the actor still
// included; actor exclusion is the orchestrator's call.
func (r *Registry) Resolve(ctx context.Context, eventType, orgID string, entity Entity, actor *directory.User) []directory.User {
	resolver := r.lookup(eventType)
	if resolver == nil {
		r.log.DebugContext(ctx, "no resolver registered, falling back to administrators",
			logger.EventType(eventType))
		return r.adminFallback(ctx, orgID, eventType)
	}

	users, err := resolver.Resolve(ctx, orgID, entity, actor)
	if err != nil {
		r.log.ErrorContext(ctx, "resolver failed, falling back to administrators",
			logger.EventType(eventType),
			logger.OrganizationID(orgID),
			logger.Error(err))
		return r.adminFallback(ctx, orgID, eventType)
	}
	return dedupeUsers(users)
}

func (r *Registry) lookup(eventType string) Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if resolver, ok := r.resolvers[eventType]; ok {
		return resolver
	}
	for prefix := eventType; ; {
		i := strings.LastIndex(prefix, ".")
		if i <= 0 {
			return nil
		}
		prefix = prefix[:i]
		if resolver, ok := r.resolvers[prefix+".*"]; ok {
			return resolver
		}
	}
}

func (r *Registry) adminFallback(ctx context.Context, orgID, eventType string) []directory.User {
	admins, err := r.dir.AdministratorsOf(ctx, orgID)
	if err != nil {
		r.log.ErrorContext(ctx, "administrator fallback failed",
			logger.EventType(eventType),
			logger.OrganizationID(orgID),
			logger.Error(err))
		return nil
	}
	return dedupeUsers(admins)
}

func dedupeUsers(users []directory.User) []directory.User {
	seen := make(map[string]bool, len(users))
	out := users[:0]
	for _, u := range users {
		if seen[u.ID] || !u.Active {
			continue
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	return out
}

// PermissionHolders resolves to every user in the organization holding the
// given permission.
func PermissionHolders(dir directory.Directory, permission string) Resolver {
	return ResolverFunc(func(ctx context.Context, orgID string, _ Entity, _ *directory.User) ([]directory.User, error) {
		return dir.UsersWithPermission(ctx, orgID, permission)
	})
}

// Administrators resolves to the organization's administrators.
func Administrators(dir directory.Directory) Resolver {
	return ResolverFunc(func(ctx context.Context, orgID string, _ Entity, _ *directory.User) ([]directory.User, error) {
		return dir.AdministratorsOf(ctx, orgID)
	})
}

// EntityField resolves to the single user referenced by a field on the
// entity, e.g. the assignee of a document. When the field is absent or the
// user cannot be found, it falls back to holders of the given permission so
// the event still reaches someone who can act on it.
func EntityField(dir directory.Directory, field, fallbackPermission string) Resolver {
	return ResolverFunc(func(ctx context.Context, orgID string, entity Entity, _ *directory.User) ([]directory.User, error) {
		if userID, ok := entityField(entity, field); ok && userID != "" {
			user, err := dir.Get(ctx, userID)
			if err == nil {
				return []directory.User{*user}, nil
			}
			if !errors.Is(err, directory.ErrUserNotFound) {
				return nil, err
			}
		}
		return dir.UsersWithPermission(ctx, orgID, fallbackPermission)
	})
}

// SubjectOnly resolves to exactly the user the entity refers to; the entity
// id is the user id. It suits security events, which concern one account and
// must never fan out wider.
func SubjectOnly(dir directory.Directory) Resolver {
	return ResolverFunc(func(ctx context.Context, _ string, entity Entity, _ *directory.User) ([]directory.User, error) {
		user, err := dir.Get(ctx, entity.EntityID())
		if err != nil {
			if errors.Is(err, directory.ErrUserNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []directory.User{*user}, nil
	})
}

// DefaultRegistry returns a registry preloaded with the standard school event
// catalog. Callers may register additional event types or override entries
// before handing it to the orchestrator.
func DefaultRegistry(dir directory.Directory, opts ...RegistryOption) *Registry {
	r := NewRegistry(dir, opts...)

	r.Register("admission.*", PermissionHolders(dir, "admissions.manage"))
	r.Register("income.*", PermissionHolders(dir, "finance.view"))
	r.Register("expense.*", PermissionHolders(dir, "finance.view"))
	r.Register("invoice.*", PermissionHolders(dir, "finance.view"))
	r.Register("payment.*", PermissionHolders(dir, "finance.view"))
	r.Register("finance.*", PermissionHolders(dir, "finance.view"))
	r.Register("finance.account.low", PermissionHolders(dir, "finance.manage"))
	r.Register("fee.*", PermissionHolders(dir, "fees.manage"))
	r.Register("library.*", PermissionHolders(dir, "library.manage"))
	r.Register("asset.*", PermissionHolders(dir, "assets.manage"))
	r.Register("asset.assigned", EntityField(dir, "assigned_to", "assets.manage"))
	r.Register("exam.*", PermissionHolders(dir, "exams.manage"))
	r.Register("student.*", PermissionHolders(dir, "students.manage"))
	r.Register("attendance.*", PermissionHolders(dir, "attendance.manage"))
	r.Register("doc.*", PermissionHolders(dir, "dms.manage"))
	r.Register("doc.assigned", EntityField(dir, "assignee_id", "dms.manage"))
	r.Register("security.*", SubjectOnly(dir))
	r.Register("subscription.*", Administrators(dir))
	r.Register("system.*", Administrators(dir))

	return r
}

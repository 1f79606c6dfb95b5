// Package pluginreg implements the plugin registry (§4.5): directory
// discovery of loadable modules, lifecycle fan-out (start/exit/auth/
// extension/upgrade), and pseudo-plugins registered directly by the
// process rather than discovered on disk. Grounded on
// lib/src/clixon_plugin.c for the lifecycle contract, and on the
// teacher's pkg/registry.Registry (sync.RWMutex-guarded named-resource
// map with Register*/Get*/List* methods) for the Go realization of "a
// table of named, independently-loaded backends".
package pluginreg

import (
	"context"
	"path/filepath"
	"plugin"
	"sort"
	"sync"

	"github.com/yangconf/confd/internal/dispatch"
	"github.com/yangconf/confd/internal/errs"
	"github.com/yangconf/confd/internal/logger"
	"github.com/yangconf/confd/internal/xmltree"
)

// AuthVerdict is the result of one plugin's Auth hook.
type AuthVerdict int

const (
	Unauthenticated AuthVerdict = iota
	Authenticated
)

// UpgradeOp is the kind of datastore change an upgrade callback is being
// invoked for: a module was added, deleted, or had its revision changed.
type UpgradeOp string

const (
	UpgradeAdd    UpgradeOp = "add"
	UpgradeDel    UpgradeOp = "del"
	UpgradeChange UpgradeOp = "change"
)

// UpgradeHook is a plugin's datastore-upgrade callback (§4.5), registered
// against a module namespace and a from/to revision pair. It is invoked
// with the top-level tree under upgrade, the matched module's namespace,
// the edit kind, and the on-disk/target revisions (form YYYYMMDD). It
// reports outcome three ways, mirroring clixon_plugin.c's
// upgrade_callback_call: a non-nil error is a hard failure; ok == false
// rejects the upgrade, and the hook must append the reason to resp; ok
// == true with resp left untouched accepts it.
type UpgradeHook func(ctx context.Context, tree *xmltree.Node, namespace string, op UpgradeOp, fromRevision, toRevision string, resp *dispatch.ResponseBuffer) (ok bool, err error)

// API is the hook surface a plugin may implement; every hook is
// optional, mirroring clixon_plugin.c's "nil if not defined, call is a
// no-op" contract — a pseudo-plugin built in Go simply leaves the
// fields it does not care about nil.
type API struct {
	Start     func(ctx context.Context) error
	Exit      func(ctx context.Context) error
	Auth      func(ctx context.Context, sessionToken string) (AuthVerdict, error)
	Extension func(ctx context.Context, name string, body []byte) error
	Upgrade   UpgradeHook
	// UpgradeNamespace filters which modules Upgrade is invoked for; the
	// empty string is a wildcard matching every module, the same
	// registration-without-a-namespace convention clixon_plugin.c's
	// upgrade_callback_reg_fn documents for uc_namespace == NULL.
	UpgradeNamespace string
}

// entry is one loaded or registered plugin.
type entry struct {
	name string
	api  API
}

// Registry holds every loaded/registered plugin in discovery order,
// the order lifecycle fan-out runs in (§4.5: "in registration order").
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry { return &Registry{} }

// RegisterPseudo registers a built-in plugin that was never discovered
// from a file — the mechanism internal/authplugin.JWT and .Kerberos use
// to join the auth chain without a shared-object on disk.
func (r *Registry) RegisterPseudo(name string, api API) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.name == name {
			return errs.New(errs.Plugin, "plugin %q already registered", name)
		}
	}
	r.entries = append(r.entries, &entry{name: name, api: api})
	return nil
}

// Load discovers every file under dir matching pattern (lexicographic
// order, §4.5's declared discovery order), opening each via Go's own
// plugin ABI — the direct analogue of the dlopen-based discovery
// clixon_plugin.c performs — and looking up a Plugin symbol of type API.
// A plugin that exists but does not export Plugin is skipped with a
// soft diagnostic, not a hard failure (§7: "plugin-load: soft skip").
func (r *Registry) Load(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, errs.New(errs.Plugin, "glob %q: %v", pattern, err).WithPath(dir)
	}
	sort.Strings(matches)

	var loaded []string
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, path := range matches {
		name := filepath.Base(path)
		already := false
		for _, e := range r.entries {
			if e.name == name {
				already = true
				break
			}
		}
		if already {
			continue
		}
		p, err := plugin.Open(path)
		if err != nil {
			continue
		}
		sym, err := p.Lookup("Plugin")
		if err != nil {
			logger.Warn("plugin skipped: no Plugin symbol", "path", path, "error", err)
			continue
		}
		api, ok := sym.(*API)
		if !ok {
			logger.Warn("plugin skipped: Plugin symbol is not a *pluginreg.API", "path", path)
			continue
		}
		r.entries = append(r.entries, &entry{name: name, api: *api})
		loaded = append(loaded, name)
	}
	return loaded, nil
}

// StartAll calls every registered plugin's Start hook, in registration
// order, stopping at the first error.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.api.Start == nil {
			continue
		}
		if err := e.api.Start(ctx); err != nil {
			return errs.New(errs.Plugin, "start %q: %v", e.name, err)
		}
	}
	return nil
}

// ExitAll calls every registered plugin's Exit hook, in registration
// order, collecting but not stopping on individual failures (shutdown
// must make a best effort across every plugin).
func (r *Registry) ExitAll(ctx context.Context) []error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errsOut []error
	for _, e := range r.entries {
		if e.api.Exit == nil {
			continue
		}
		if err := e.api.Exit(ctx); err != nil {
			errsOut = append(errsOut, errs.New(errs.Plugin, "exit %q: %v", e.name, err))
		}
	}
	return errsOut
}

// AuthAll runs the auth chain: only the first plugin with a non-nil Auth
// hook runs (§4.5); later plugins are not consulted. If no plugin in the
// registry implements Auth at all, the system is open and the session is
// Authenticated: auth is opt-in per plugin, not deny-by-default.
func (r *Registry) AuthAll(ctx context.Context, sessionToken string) (AuthVerdict, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.api.Auth == nil {
			continue
		}
		return e.api.Auth(ctx, sessionToken)
	}
	return Authenticated, nil
}

// ExtensionAll calls every registered plugin's Extension hook.
func (r *Registry) ExtensionAll(ctx context.Context, name string, body []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.api.Extension == nil {
			continue
		}
		if err := e.api.Extension(ctx, name, body); err != nil {
			return errs.New(errs.Plugin, "extension %q on %q: %v", name, e.name, err)
		}
	}
	return nil
}

// UpgradeAll calls the Upgrade hook of every plugin whose UpgradeNamespace
// matches namespace, or which registered with no namespace filter (a
// wildcard), in registration order. A hook's non-nil error aborts the
// whole call; a hook that rejects (ok == false) without populating resp
// is a protocol bug and is itself turned into an error, mirroring
// upgrade_callback_call's "cbret not set" diagnostic. The returned
// ResponseBuffer carries every diagnostic appended by a rejecting hook.
func (r *Registry) UpgradeAll(ctx context.Context, tree *xmltree.Node, namespace string, op UpgradeOp, fromRevision, toRevision string) (*dispatch.ResponseBuffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resp := &dispatch.ResponseBuffer{}
	for _, e := range r.entries {
		if e.api.Upgrade == nil {
			continue
		}
		if e.api.UpgradeNamespace != "" && e.api.UpgradeNamespace != namespace {
			continue
		}
		ok, err := e.api.Upgrade(ctx, tree, namespace, op, fromRevision, toRevision, resp)
		if err != nil {
			return resp, errs.New(errs.Plugin, "upgrade %q on %q: %v", namespace, e.name, err)
		}
		if !ok {
			if len(resp.Snapshot()) == 0 {
				return resp, errs.New(errs.Plugin, "upgrade %q on %q: rejected without a reason", namespace, e.name)
			}
			return resp, errs.New(errs.Plugin, "upgrade %q rejected by %q", namespace, e.name)
		}
	}
	return resp, nil
}

// Names returns every registered plugin's name, in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.name
	}
	return out
}

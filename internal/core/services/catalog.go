package services

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driving"
	"github.com/custodia-labs/stackup-cli/internal/logger"
)

// Ensure Catalog implements the interface.
var _ driving.CatalogService = (*Catalog)(nil)

// Known service names.
const (
	ServiceGitHub   = "github"
	ServiceSupabase = "supabase"
	ServiceNeon     = "neon"
	ServiceVercel   = "vercel"
)

// Unified context keys produced by the built-in services.
const (
	KeyRepositoryURL    = "repository_url"
	KeyFullName         = "full_name"
	KeyConnectionString = "connection_string"
	KeyProjectID        = "project_id"
	KeyDeploymentURL    = "deployment_url"
)

// connectionStringPattern finds a Postgres URL in free-form tool output.
var connectionStringPattern = regexp.MustCompile(`postgres(?:ql)?://[^\s"'<>]+`)

// DefaultServices returns the built-in service descriptors.
//
//nolint:gosec // G101: credential names, not credentials.
func DefaultServices() []domain.ServiceDescriptor {
	return []domain.ServiceDescriptor{
		domain.NewServiceDescriptor(domain.ServiceSpec{
			Name:        ServiceGitHub,
			Command:     "npx",
			Args:        []string{"-y", "@modelcontextprotocol/server-github"},
			Credentials: []string{"GITHUB_PERSONAL_ACCESS_TOKEN"},
			Exports: []domain.Export{
				{Key: KeyRepositoryURL, Path: "html_url"},
				{Key: KeyFullName, Path: "full_name"},
			},
		}),
		domain.NewServiceDescriptor(domain.ServiceSpec{
			Name:        ServiceSupabase,
			Command:     "npx",
			Args:        []string{"-y", "@supabase/mcp-server"},
			Credentials: []string{"SUPABASE_ACCESS_TOKEN"},
		}),
		domain.NewServiceDescriptor(domain.ServiceSpec{
			Name:        ServiceNeon,
			Command:     "npx",
			Args:        []string{"-y", "@neondatabase/mcp-server"},
			Credentials: []string{"NEON_API_KEY"},
			Exports: []domain.Export{
				{
					Key:     KeyConnectionString,
					Path:    "connection_uris.0.connection_uri",
					Pattern: connectionStringPattern,
					Secret:  true,
				},
				{Key: KeyProjectID, Path: "project.id"},
			},
		}),
		domain.NewServiceDescriptor(domain.ServiceSpec{
			Name:        ServiceVercel,
			Command:     "npx",
			Args:        []string{"-y", "@vercel/mcp-server"},
			Credentials: []string{"VERCEL_TOKEN"},
			Exports: []domain.Export{
				{Key: KeyDeploymentURL, Path: "url"},
			},
		}),
	}
}

// ServicesFromConfig applies [services.<name>] overrides from cfg to base.
// Overridable fields are command, args, credentials and the env table.
// A name absent from base defines a new service and must set a command.
func ServicesFromConfig(base []domain.ServiceDescriptor, cfg driven.ConfigStore) []domain.ServiceDescriptor {
	specs := make([]domain.ServiceSpec, 0, len(base))
	index := make(map[string]int, len(base))
	for i, desc := range base {
		specs = append(specs, desc.Spec())
		index[desc.Name()] = i
	}
	if cfg == nil {
		return base
	}

	for _, name := range configuredServiceNames(cfg) {
		prefix := "services." + name + "."
		i, known := index[name]
		if !known {
			if cfg.GetString(prefix+"command") == "" {
				logger.Warn("config: service %q has no command, ignoring", name)
				continue
			}
			specs = append(specs, domain.ServiceSpec{Name: name})
			i = len(specs) - 1
			index[name] = i
		}

		spec := &specs[i]
		if cmd := cfg.GetString(prefix + "command"); cmd != "" {
			spec.Command = cmd
		}
		if _, ok := cfg.Get(prefix + "args"); ok {
			spec.Args = cfg.GetStringSlice(prefix + "args")
		}
		if _, ok := cfg.Get(prefix + "credentials"); ok {
			spec.Credentials = cfg.GetStringSlice(prefix + "credentials")
		}
		if env := cfg.GetStringMap(prefix + "env"); len(env) > 0 {
			if spec.Env == nil {
				spec.Env = make(map[string]string, len(env))
			}
			for k, v := range env {
				spec.Env[k] = v
			}
		}
	}

	out := make([]domain.ServiceDescriptor, len(specs))
	for i, spec := range specs {
		out[i] = domain.NewServiceDescriptor(spec)
	}
	return out
}

// configuredServiceNames returns the service names under "services.", in
// sorted order.
func configuredServiceNames(cfg driven.ConfigStore) []string {
	var names []string
	for _, key := range cfg.Keys() {
		rest, ok := strings.CutPrefix(key, "services.")
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(rest, ".")
		if name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Catalog holds the known service descriptors, looked up by name.
// It is assembled once at startup and never mutated.
type Catalog struct {
	order   []string
	byName  map[string]domain.ServiceDescriptor
	checker *PreconditionChecker
}

// NewCatalog creates a catalog. Names must be unique and every descriptor
// needs a command.
func NewCatalog(checker *PreconditionChecker, descs ...domain.ServiceDescriptor) (*Catalog, error) {
	c := &Catalog{
		byName:  make(map[string]domain.ServiceDescriptor, len(descs)),
		checker: checker,
	}
	for _, desc := range descs {
		if desc.Name() == "" {
			return nil, errors.New("service descriptor without a name")
		}
		if desc.Command() == "" {
			return nil, fmt.Errorf("service %s: launch command is required", desc.Name())
		}
		if _, dup := c.byName[desc.Name()]; dup {
			return nil, fmt.Errorf("service %s registered twice", desc.Name())
		}
		c.byName[desc.Name()] = desc
		c.order = append(c.order, desc.Name())
	}
	return c, nil
}

// List returns all descriptors in registration order.
func (c *Catalog) List() []domain.ServiceDescriptor {
	out := make([]domain.ServiceDescriptor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

// Get returns the descriptor registered under name.
func (c *Catalog) Get(name string) (domain.ServiceDescriptor, error) {
	desc, ok := c.byName[name]
	if !ok {
		return domain.ServiceDescriptor{}, fmt.Errorf("%w: %s", domain.ErrUnknownService, name)
	}
	return desc, nil
}

// Resolve returns the descriptors for names, or every descriptor when
// names is empty.
func (c *Catalog) Resolve(names ...string) ([]domain.ServiceDescriptor, error) {
	if len(names) == 0 {
		return c.List(), nil
	}
	out := make([]domain.ServiceDescriptor, 0, len(names))
	for _, name := range names {
		desc, err := c.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}

// Status reports missing credentials per service.
func (c *Catalog) Status() []driving.CredentialStatus {
	out := make([]driving.CredentialStatus, 0, len(c.order))
	for _, desc := range c.List() {
		out = append(out, driving.CredentialStatus{
			Service: desc.Name(),
			Missing: c.checker.Missing(desc),
		})
	}
	return out
}

// CheckCredentials verifies the named services, or all when names is empty.
func (c *Catalog) CheckCredentials(names ...string) error {
	descs, err := c.Resolve(names...)
	if err != nil {
		return err
	}
	return c.checker.VerifyAll(descs)
}

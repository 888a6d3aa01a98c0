package discovery

import (
	"go/token"
	"reflect"
	"slices"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/ethereum-optimism/infra/op-testexec/assert"
	"github.com/ethereum-optimism/infra/op-testexec/types"
)

const (
	testPrefix   = "Test"
	setUpName    = "SetUp"
	tearDownName = "TearDown"
)

var (
	// ErrDuplicateSuite is returned when a suite name is registered twice.
	ErrDuplicateSuite = errors.New("suite already registered")
	// ErrNilSuite is returned by a constructor whose factory produced nil.
	ErrNilSuite = errors.New("suite factory returned nil")

	runContextType = reflect.TypeOf((*types.RunContext)(nil))
)

// Catalog holds registered suites. It is safe for concurrent use.
type Catalog struct {
	log log.Logger

	mu     sync.RWMutex
	suites map[string]*types.TypeDescriptor
	order  []string
}

// NewCatalog returns an empty catalog.
func NewCatalog(logger log.Logger) *Catalog {
	if logger == nil {
		logger = log.New()
	}
	return &Catalog{
		log:    logger.New("component", "discovery"),
		suites: make(map[string]*types.TypeDescriptor),
	}
}

// Register registers suite type T. Every run of a suite method gets its
// instance from factory; a nil factory registers a suite without a
// constructor.
func Register[T any](c *Catalog, factory func() *T, opts ...Option) (*types.TypeDescriptor, error) {
	var ctor func() (any, error)
	if factory != nil {
		ctor = func() (any, error) {
			if s := factory(); s != nil {
				return s, nil
			}
			return nil, ErrNilSuite
		}
	}
	return c.RegisterType(reflect.TypeFor[T](), ctor, opts...)
}

// RegisterFactory is Register for factories that can fail.
func RegisterFactory[T any](c *Catalog, factory func() (*T, error), opts ...Option) (*types.TypeDescriptor, error) {
	var ctor func() (any, error)
	if factory != nil {
		ctor = func() (any, error) {
			s, err := factory()
			if err != nil {
				return nil, err
			}
			if s == nil {
				return nil, ErrNilSuite
			}
			return s, nil
		}
	}
	return c.RegisterType(reflect.TypeFor[T](), ctor, opts...)
}

// RegisterType registers the suite type t. ctor must return a pointer to t.
func (c *Catalog) RegisterType(t reflect.Type, ctor func() (any, error), opts ...Option) (*types.TypeDescriptor, error) {
	if t == nil {
		return nil, errors.New("nil suite type")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var reg registration
	for _, opt := range opts {
		opt(&reg)
	}

	td := &types.TypeDescriptor{
		FullName:    reg.name,
		Name:        t.Name(),
		Kind:        kindOf(t),
		Abstract:    reg.abstract,
		Public:      token.IsExported(t.Name()) && !reg.hidden,
		NewInstance: ctor,
	}
	if td.FullName == "" {
		td.FullName = fullName(t)
	}

	tags, err := suiteTags(t)
	if err != nil {
		return nil, errors.Wrapf(err, "reading tags of %s", td.FullName)
	}
	for name, extra := range reg.tags {
		tags[name] = tags[name].merge(extra)
	}
	td.Methods = c.describeMethods(td, t, tags)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.suites[td.FullName]; ok {
		return nil, errors.Wrap(ErrDuplicateSuite, td.FullName)
	}
	c.suites[td.FullName] = td
	c.order = append(c.order, td.FullName)
	c.log.Debug("Registered suite", "suite", td.FullName, "methods", len(td.Methods))
	return td, nil
}

// Types returns the registered suites in registration order.
func (c *Catalog) Types() []*types.TypeDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*types.TypeDescriptor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.suites[name])
	}
	return out
}

// Lookup returns the suite registered under name.
func (c *Catalog) Lookup(name string) (*types.TypeDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	td, ok := c.suites[name]
	return td, ok
}

// Methods returns the test candidates of every suite. Actions are not
// included; the executor finds them through their declaring type.
func (c *Catalog) Methods() []*types.MethodDescriptor {
	var out []*types.MethodDescriptor
	for _, td := range c.Types() {
		out = append(out, Tests(td)...)
	}
	return out
}

// Tests returns the test candidates declared on td.
func Tests(td *types.TypeDescriptor) []*types.MethodDescriptor {
	var out []*types.MethodDescriptor
	for _, m := range td.Methods {
		if m.IsTest {
			out = append(out, m)
		}
	}
	return out
}

func (c *Catalog) describeMethods(td *types.TypeDescriptor, t reflect.Type, tags map[string]Tags) []*types.MethodDescriptor {
	mt := t
	if t.Kind() != reflect.Interface {
		mt = reflect.PointerTo(t)
	}

	seen := make(map[string]bool, mt.NumMethod())
	var out []*types.MethodDescriptor
	for i := 0; i < mt.NumMethod(); i++ {
		rm := mt.Method(i)
		seen[rm.Name] = true
		tag := tags[rm.Name]

		isTest := isTestName(rm.Name) || tag.Test
		pre := rm.Name == setUpName || tag.PreAction
		post := rm.Name == tearDownName || tag.PostAction
		if !isTest && !pre && !post {
			continue
		}

		md := &types.MethodDescriptor{
			Type:         td,
			Name:         rm.Name,
			Public:       rm.IsExported(),
			IsTest:       isTest,
			IsPreAction:  pre,
			IsPostAction: post,
			ActionOrder:  tag.Order,
			Description:  tag.Description,
			Skip:         tag.Skip,
			SkipMessage:  tag.SkipMessage,
			Groups:       slices.Clone(tag.Groups),
		}
		ft := rm.Type
		first := 0
		if t.Kind() != reflect.Interface {
			// Skip the receiver.
			first = 1
		}
		md.ReturnsVoid = ft.NumOut() == 0
		for j := first; j < ft.NumIn(); j++ {
			if ft.In(j) == runContextType && !ft.IsVariadic() {
				md.Params = append(md.Params, types.ParamRunContext)
			} else {
				md.Params = append(md.Params, types.ParamOther)
			}
		}
		if rm.Func.IsValid() {
			md.Invoke = invoker(rm.Func, md.TakesRunContext())
		}
		out = append(out, md)
	}

	for name := range tags {
		if !seen[name] {
			c.log.Warn("Tagged method not found on suite", "suite", td.FullName, "method", name)
		}
	}
	return out
}

func invoker(fn reflect.Value, withContext bool) types.Invoker {
	return func(instance any, rc *types.RunContext) (out types.Outcome) {
		defer func() {
			if r := recover(); r != nil {
				out = assert.Recover(r)
			}
		}()
		args := []reflect.Value{reflect.ValueOf(instance)}
		if withContext {
			args = append(args, reflect.ValueOf(rc))
		}
		fn.Call(args)
		return types.OK()
	}
}

func suiteTags(t reflect.Type) (tags map[string]Tags, err error) {
	tags = make(map[string]Tags)
	if t.Kind() == reflect.Interface {
		return tags, nil
	}
	a, ok := reflect.New(t).Interface().(Annotated)
	if !ok {
		return tags, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("Tags panicked: %v", r)
		}
	}()
	for name, tag := range a.Tags() {
		tags[name] = tag
	}
	return tags, nil
}

// isTestName follows the go test convention: "Test" alone, or followed by
// a character that is not a lower-case letter.
func isTestName(name string) bool {
	if len(name) < len(testPrefix) || name[:len(testPrefix)] != testPrefix {
		return false
	}
	if len(name) == len(testPrefix) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(name[len(testPrefix):])
	return !unicode.IsLower(r)
}

func kindOf(t reflect.Type) types.TypeKind {
	switch t.Kind() {
	case reflect.Struct:
		return types.KindClass
	case reflect.Interface:
		return types.KindInterface
	default:
		return types.KindValue
	}
}

func fullName(t reflect.Type) string {
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

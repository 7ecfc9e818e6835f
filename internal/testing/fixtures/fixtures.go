package fixtures

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Execer is the part of *sql.DB the factory needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Factory creates test rows in the database
type Factory struct {
	db Execer
}

// New creates a new fixture factory
func New(db Execer) *Factory {
	return &Factory{db: db}
}

// NewID returns prefix_ followed by a random hex id.
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func (f *Factory) exec(t *testing.T, what, query string, args ...any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := f.db.ExecContext(ctx, query, args...); err != nil {
		t.Fatalf("fixtures: failed to create %s: %v", what, err)
	}
}

// ============================================================================
// Currency Fixtures
// ============================================================================

// Currency is an inserted currency row.
type Currency struct {
	Code   string
	Symbol string
	Name   string
}

// CreateCurrency inserts a currency. The seeded currencies (usd, eur, dkk) do
// not need to be created.
func (f *Factory) CreateCurrency(t *testing.T, code, symbol, name string) Currency {
	t.Helper()
	c := Currency{Code: code, Symbol: symbol, Name: name}
	f.exec(t, "currency",
		`INSERT INTO currency (code, symbol, name) VALUES ($1, $2, $3)`,
		c.Code, c.Symbol, c.Name)
	return c
}

// ============================================================================
// Region Fixtures
// ============================================================================

// Region is an inserted region row.
type Region struct {
	ID           string
	Name         string
	CurrencyCode string
	TaxRate      float64
}

// RegionOpts customizes region creation
type RegionOpts struct {
	Name         string
	CurrencyCode string
	TaxRate      float64
}

// WithCurrency sets the region currency.
func WithCurrency(code string) func(*RegionOpts) {
	return func(o *RegionOpts) {
		o.CurrencyCode = code
	}
}

// CreateRegion creates a region with optional customizations
func (f *Factory) CreateRegion(t *testing.T, opts ...func(*RegionOpts)) Region {
	t.Helper()

	o := &RegionOpts{
		Name:         fmt.Sprintf("Region %s", NewID("r")),
		CurrencyCode: "usd",
	}
	for _, fn := range opts {
		fn(o)
	}

	r := Region{ID: NewID("reg"), Name: o.Name, CurrencyCode: o.CurrencyCode, TaxRate: o.TaxRate}
	f.exec(t, "region",
		`INSERT INTO region (id, name, currency_code, tax_rate) VALUES ($1, $2, $3, $4)`,
		r.ID, r.Name, r.CurrencyCode, r.TaxRate)
	return r
}

// CreateCountry inserts a country attached to region.
func (f *Factory) CreateCountry(t *testing.T, iso2, name string, region Region) {
	t.Helper()
	f.exec(t, "country",
		`INSERT INTO country (iso_2, name, region_id) VALUES ($1, $2, $3)`,
		iso2, name, region.ID)
}

// AssignCountry attaches an existing (seeded) country to region.
func (f *Factory) AssignCountry(t *testing.T, iso2 string, region Region) {
	t.Helper()
	f.exec(t, "country assignment",
		`UPDATE country SET region_id = $1 WHERE iso_2 = $2`,
		region.ID, iso2)
}

// ============================================================================
// User Fixtures
// ============================================================================

// User is an inserted user row. The password is kept in clear text so tests
// can authenticate with it.
type User struct {
	ID       string
	Email    string
	Password string
	Role     string
}

// UserOpts customizes user creation
type UserOpts struct {
	Email    string
	Password string
	Role     string
}

// CreateUser creates a user with optional customizations
func (f *Factory) CreateUser(t *testing.T, opts ...func(*UserOpts)) User {
	t.Helper()

	id := NewID("usr")
	o := &UserOpts{
		Email:    fmt.Sprintf("%s@test.local", id),
		Password: "testpass123",
		Role:     "member",
	}
	for _, fn := range opts {
		fn(o)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(o.Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("fixtures: failed to hash password: %v", err)
	}

	f.exec(t, "user",
		`INSERT INTO "user" (id, email, password_hash, role) VALUES ($1, $2, $3, $4)`,
		id, o.Email, string(hash), o.Role)

	return User{ID: id, Email: o.Email, Password: o.Password, Role: o.Role}
}

// CreateAdmin creates an admin user
func (f *Factory) CreateAdmin(t *testing.T) User {
	return f.CreateUser(t, func(o *UserOpts) {
		o.Role = "admin"
	})
}

// ============================================================================
// Job Fixtures
// ============================================================================

// CreateStagedJob stages an event for the job runner.
func (f *Factory) CreateStagedJob(t *testing.T, eventName string, data map[string]any) string {
	t.Helper()

	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("fixtures: failed to encode job data: %v", err)
	}

	id := NewID("job")
	f.exec(t, "staged job",
		`INSERT INTO staged_job (id, event_name, data) VALUES ($1, $2, $3::jsonb)`,
		id, eventName, string(payload))
	return id
}

// ============================================================================
// Flag-gated Fixtures
// ============================================================================

// CreateSalesChannel inserts a sales channel. The table only exists when the
// sales_channels flag is on.
func (f *Factory) CreateSalesChannel(t *testing.T, name string) string {
	t.Helper()
	id := NewID("sc")
	f.exec(t, "sales channel",
		`INSERT INTO sales_channel (id, name) VALUES ($1, $2)`,
		id, name)
	return id
}

// CreateProduct inserts a product with one variant and returns the product id.
func (f *Factory) CreateProduct(t *testing.T, title string) string {
	t.Helper()
	id := NewID("prod")
	f.exec(t, "product",
		`INSERT INTO product (id, title, handle) VALUES ($1, $2, $3)`,
		id, title, strings.ToLower(strings.ReplaceAll(title, " ", "-"))+"-"+id[len(id)-6:])
	f.exec(t, "product variant",
		`INSERT INTO product_variant (id, product_id, title) VALUES ($1, $2, $3)`,
		NewID("variant"), id, "Default")
	return id
}

// CreatePriceSet inserts a price set with one amount and returns its id.
func (f *Factory) CreatePriceSet(t *testing.T, currency string, amount int64) string {
	t.Helper()
	id := NewID("pset")
	f.exec(t, "price set", `INSERT INTO price_set (id) VALUES ($1)`, id)
	f.exec(t, "money amount",
		`INSERT INTO money_amount (id, price_set_id, currency_code, amount) VALUES ($1, $2, $3, $4)`,
		NewID("ma"), id, currency, amount)
	return id
}

package strategy

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/juju/clock"
)

// Entry is the selection view of a registered strategy.
type Entry struct {
	DisplayName string    `json:"display_name"`
	ID          uuid.UUID `json:"id"`
}

type fareRegistration struct {
	entry    Entry
	strategy FareStrategy
}

type discountRegistration struct {
	entry    Entry
	strategy DiscountStrategy
}

// Catalog resolves strategies by their stable identifiers. Registration
// happens once at startup; after that the catalog is read-only and may be
// shared between goroutines.
type Catalog struct {
	fares     []fareRegistration
	discounts []discountRegistration
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// DefaultCatalog returns a catalog with the built-in strategies registered.
// clk is the time source of date-sensitive discounts; nil uses the wall clock.
func DefaultCatalog(clk clock.Clock) *Catalog {
	c := NewCatalog()
	// Registration of the built-ins cannot collide.
	_ = c.RegisterFareStrategy(BaseFareStrategyID, "Base Fare Scheme", BaseFareStrategy{})
	_ = c.RegisterDiscountStrategy(SeniorAndPwdDiscountStrategyID, "Senior & PWD Discount Scheme",
		NewSeniorAndPwdDiscountStrategy(clk))
	return c
}

// RegisterFareStrategy adds a fare strategy under id. An empty displayName is
// derived from the strategy's type name.
func (c *Catalog) RegisterFareStrategy(id uuid.UUID, displayName string, s FareStrategy) error {
	if err := c.checkRegistration(id, s == nil); err != nil {
		return err
	}
	c.fares = append(c.fares, fareRegistration{
		entry:    Entry{DisplayName: displayNameOf(displayName, s), ID: id},
		strategy: s,
	})
	return nil
}

// RegisterDiscountStrategy adds a discount strategy under id. An empty
// displayName is derived from the strategy's type name.
func (c *Catalog) RegisterDiscountStrategy(id uuid.UUID, displayName string, s DiscountStrategy) error {
	if err := c.checkRegistration(id, s == nil); err != nil {
		return err
	}
	c.discounts = append(c.discounts, discountRegistration{
		entry:    Entry{DisplayName: displayNameOf(displayName, s), ID: id},
		strategy: s,
	})
	return nil
}

func (c *Catalog) checkRegistration(id uuid.UUID, nilStrategy bool) error {
	if id == uuid.Nil {
		return fmt.Errorf("register strategy: nil id")
	}
	if nilStrategy {
		return fmt.Errorf("register strategy %s: nil strategy", id)
	}
	for _, r := range c.fares {
		if r.entry.ID == id {
			return fmt.Errorf("register strategy %s: id already registered", id)
		}
	}
	for _, r := range c.discounts {
		if r.entry.ID == id {
			return fmt.Errorf("register strategy %s: id already registered", id)
		}
	}
	return nil
}

// ResolveFareStrategy returns the fare strategy registered under id.
func (c *Catalog) ResolveFareStrategy(id uuid.UUID) (FareStrategy, error) {
	for _, r := range c.fares {
		if r.entry.ID == id {
			return r.strategy, nil
		}
	}
	return nil, fmt.Errorf("%w: fare strategy %s", ErrStrategyNotFound, id)
}

// ResolveDiscountStrategy returns the discount strategy registered under id.
func (c *Catalog) ResolveDiscountStrategy(id uuid.UUID) (DiscountStrategy, error) {
	for _, r := range c.discounts {
		if r.entry.ID == id {
			return r.strategy, nil
		}
	}
	return nil, fmt.Errorf("%w: discount strategy %s", ErrStrategyNotFound, id)
}

// FareStrategies lists the fare strategies in registration order.
func (c *Catalog) FareStrategies() []Entry {
	entries := make([]Entry, 0, len(c.fares))
	for _, r := range c.fares {
		entries = append(entries, r.entry)
	}
	return entries
}

// DiscountStrategies lists the discount strategies in registration order.
func (c *Catalog) DiscountStrategies() []Entry {
	entries := make([]Entry, 0, len(c.discounts))
	for _, r := range c.discounts {
		entries = append(entries, r.entry)
	}
	return entries
}

func displayNameOf(explicit string, s any) string {
	if name := strings.TrimSpace(explicit); name != "" {
		return name
	}
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return splitWords(t.Name())
}

// splitWords turns an identifier such as "PWDDiscountStrategy" into
// "PWD Discount Strategy". Runs of digits become their own word.
func splitWords(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			switch {
			case unicode.IsUpper(r) && (!unicode.IsUpper(prev) || nextLower):
				b.WriteRune(' ')
			case !unicode.IsLetter(r) && unicode.IsLetter(prev):
				b.WriteRune(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

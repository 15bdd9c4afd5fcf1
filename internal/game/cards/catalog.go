package cards

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// CatalogFile is the top-level YAML structure of a card catalog.
type CatalogFile struct {
	Cards []Card `yaml:"cards"`
}

// Catalog is read-only reference data shared by every match.
type Catalog struct {
	cards map[string]*Card
	names []string
}

// DefaultCatalog parses the catalog shipped with the server.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads and parses a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses YAML catalog data and validates every card.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}
	return NewCatalog(file.Cards...)
}

// NewCatalog builds a catalog from card templates.
func NewCatalog(cards ...Card) (*Catalog, error) {
	c := &Catalog{cards: make(map[string]*Card, len(cards))}
	for i := range cards {
		card := cards[i].Copy()
		if err := validateCard(card); err != nil {
			return nil, err
		}
		key := catalogKey(card.Name)
		if _, exists := c.cards[key]; exists {
			return nil, fmt.Errorf("duplicate card %q", card.Name)
		}
		c.cards[key] = card
		c.names = append(c.names, card.Name)
	}
	return c, nil
}

// Lookup returns a copy of the named template. Names are case-insensitive.
func (c *Catalog) Lookup(name string) (*Card, bool) {
	card, ok := c.cards[catalogKey(name)]
	if !ok {
		return nil, false
	}
	return card.Copy(), true
}

// Names lists every card in catalog order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

func catalogKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validateCard(card *Card) error {
	if strings.TrimSpace(card.Name) == "" {
		return fmt.Errorf("card without a name")
	}
	switch card.Type {
	case CardTypeHero, CardTypeMinion:
		if card.HP <= 0 {
			return fmt.Errorf("card %q: troop hp must be positive", card.Name)
		}
		switch card.AttackType {
		case AttackMelee:
		case AttackRanged, AttackHybrid:
			if card.Range <= 0 {
				return fmt.Errorf("card %q: %s troop needs a range", card.Name, card.AttackType)
			}
		default:
			return fmt.Errorf("card %q: unknown attack type %q", card.Name, card.AttackType)
		}
	case CardTypeSpell, CardTypeItem:
	default:
		return fmt.Errorf("card %q: unknown type %q", card.Name, card.Type)
	}
	for _, spell := range card.Spells {
		if err := validateSpell(spell); err != nil {
			return fmt.Errorf("card %q: %w", card.Name, err)
		}
	}
	return nil
}

func validateSpell(spell Spell) error {
	switch spell.Availability {
	case OnStart, OnPut, OnDemand:
	default:
		return fmt.Errorf("spell %q: unknown availability %q", spell.ID, spell.Availability)
	}
	if len(spell.Target.Kinds) == 0 {
		return fmt.Errorf("spell %q: no target kinds", spell.ID)
	}
	for _, kind := range spell.Target.Kinds {
		switch kind {
		case TargetCell, TargetHero, TargetMinion, TargetPlayer, TargetCard:
		default:
			return fmt.Errorf("spell %q: unknown target kind %q", spell.ID, kind)
		}
	}
	if !spell.Target.IsPlayer() {
		switch spell.Target.Anchor {
		case AnchorOwner, AnchorOwnHero, AnchorClick:
		default:
			return fmt.Errorf("spell %q: unknown anchor %q", spell.ID, spell.Target.Anchor)
		}
		if spell.Target.Rows <= 0 || spell.Target.Columns <= 0 {
			return fmt.Errorf("spell %q: area must be at least 1x1", spell.ID)
		}
	}
	if spell.Action.Delay < 0 {
		return fmt.Errorf("spell %q: negative delay", spell.ID)
	}
	if spell.Action.CarriedSpell != nil {
		return validateSpell(*spell.Action.CarriedSpell)
	}
	return nil
}

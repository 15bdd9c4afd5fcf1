package cards

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_decks.yaml
var defaultDecks []byte

// DeckFile represents the top-level YAML structure of a deck file.
type DeckFile struct {
	Decks []DeckEntry `yaml:"decks"`
}

// DeckEntry represents a single deck in the YAML file.
type DeckEntry struct {
	Name  string      `yaml:"name"`
	Hero  string      `yaml:"hero"`
	Item  string      `yaml:"item"`
	Cards []CardEntry `yaml:"cards"`
}

// CardEntry represents a card and its count in a deck.
type CardEntry struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

// Deck is a resolved deck: card names in draw order.
type Deck struct {
	Name   string
	Hero   string
	Item   string
	Others []string
}

// ParseDeckFile parses deck YAML and resolves every deck against the catalog.
// Decks are keyed by lower-cased name.
func ParseDeckFile(data []byte, catalog *Catalog) (map[string]Deck, error) {
	var df DeckFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parse deck YAML: %w", err)
	}

	decks := make(map[string]Deck, len(df.Decks))
	for _, entry := range df.Decks {
		deck, err := entry.Resolve(catalog)
		if err != nil {
			return nil, err
		}
		decks[strings.ToLower(deck.Name)] = deck
	}
	return decks, nil
}

// DefaultDecks resolves the decks shipped with the server.
func DefaultDecks(catalog *Catalog) (map[string]Deck, error) {
	return ParseDeckFile(defaultDecks, catalog)
}

// LoadDeckFile reads a deck file from disk.
func LoadDeckFile(path string, catalog *Catalog) (map[string]Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deck file: %w", err)
	}
	return ParseDeckFile(data, catalog)
}

// Resolve checks every referenced card and expands counts.
func (e DeckEntry) Resolve(catalog *Catalog) (Deck, error) {
	hero, ok := catalog.Lookup(e.Hero)
	if !ok || hero.Type != CardTypeHero {
		return Deck{}, fmt.Errorf("deck %q: %q is not a hero", e.Name, e.Hero)
	}
	deck := Deck{Name: e.Name, Hero: hero.Name}

	if e.Item != "" {
		item, ok := catalog.Lookup(e.Item)
		if !ok || item.Type != CardTypeItem {
			return Deck{}, fmt.Errorf("deck %q: %q is not an item", e.Name, e.Item)
		}
		deck.Item = item.Name
	}

	for _, entry := range e.Cards {
		card, ok := catalog.Lookup(entry.Name)
		if !ok {
			return Deck{}, fmt.Errorf("deck %q: unknown card %q", e.Name, entry.Name)
		}
		if card.Type == CardTypeHero {
			return Deck{}, fmt.Errorf("deck %q: hero %q listed among cards", e.Name, entry.Name)
		}
		for i := 0; i < entry.Count; i++ {
			deck.Others = append(deck.Others, card.Name)
		}
	}
	return deck, nil
}

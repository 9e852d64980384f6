package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/peltran/giftwise/internal/config"
)

// Relationship is the closed set of relationship kinds a contact can have.
// Storage uses the stable token; locale-specific display labels are resolved
// separately through the i18n bundle (see LabelKey).
type Relationship string

const (
	RelationshipBusiness Relationship = config.RelationshipBusiness
	RelationshipFriend   Relationship = config.RelationshipFriend
	RelationshipFamily   Relationship = config.RelationshipFamily
)

// ErrUnknownRelationship is returned by ParseRelationship for tokens outside
// the closed set.
var ErrUnknownRelationship = errors.New(config.ErrRelUnknown)

// ParseRelationship converts a storage token into a Relationship.
func ParseRelationship(s string) (Relationship, error) {
	switch Relationship(s) {
	case RelationshipBusiness, RelationshipFriend, RelationshipFamily:
		return Relationship(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRelationship, s)
	}
}

// Valid reports whether r is one of the three known kinds.
func (r Relationship) Valid() bool {
	_, err := ParseRelationship(string(r))
	return err == nil
}

// LabelKey returns the translation key for the display label of r.
func (r Relationship) LabelKey() string {
	switch r {
	case RelationshipFriend:
		return config.TKeyRelFriend
	case RelationshipFamily:
		return config.TKeyRelFamily
	default:
		return config.TKeyRelBusiness
	}
}

// ImportantDates holds the annually recurring dates of a contact.
// Each field is a calendar date string ("2006-01-02" or "--01-02"); the year
// component is irrelevant for recurrence. An empty string means "not set".
type ImportantDates struct {
	Birthday           string `json:"birthday,omitempty"`
	PromotionDate      string `json:"promotionDate,omitempty"`
	WeddingAnniversary string `json:"weddingAnniversary,omitempty"`
}

// GiftRecord is a single entry of the append-only gift-history log.
// Entries are immutable once appended.
type GiftRecord struct {
	Date string `json:"date"`
	Gift string `json:"gift"`
}

// Contact is a person record with relationship metadata, recurring dates and
// gift history.
type Contact struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Affiliation     string         `json:"affiliation"`
	Relationship    Relationship   `json:"relationship"`
	Interests       []string       `json:"interests"`
	Allergies       []string       `json:"allergies,omitempty"`
	ImportantDates  ImportantDates `json:"importantDates"`
	GiftHistory     []GiftRecord   `json:"giftHistory"`
	LastContactDate string         `json:"lastContactDate"`
}

// ErrContactInvalid is returned when a contact fails commit validation.
var ErrContactInvalid = errors.New(config.ErrDraftIncomplete)

// Validate enforces the commit invariants: name and affiliation must be
// non-empty after trimming, and the relationship must be a known kind.
func (c Contact) Validate() error {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Affiliation) == "" {
		return ErrContactInvalid
	}
	if !c.Relationship.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRelationship, c.Relationship)
	}
	return nil
}

// GiftRecommendation is a single AI-produced gift suggestion. It is ephemeral:
// produced per request, replaced by the next request, never persisted.
type GiftRecommendation struct {
	ItemName string `json:"itemName"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

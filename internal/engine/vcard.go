package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"
	"github.com/peltran/giftwise/internal/config"
)

// Importer reads vCard data into the contact model. It is the seed path for a
// session: the address book can start from a local .vcf file or a remote URL.
type Importer struct {
	Clock   Clock
	Fetcher SourceFetcher // Required only for URL sources.
}

// Load resolves source (filesystem path or http/https URL), decodes the
// stream and returns the resulting contacts. Malformed cards and unparseable
// dates are skipped with a log entry; they never abort the import.
func (im *Importer) Load(ctx context.Context, source string) ([]Contact, error) {
	if source == "" {
		return nil, errors.New(config.ErrSeedPathEmpty)
	}

	reader, err := im.open(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
	}
	// Best effort close. Errors in Close() for read-only sources are rarely actionable.
	defer func() { _ = reader.Close() }()

	contacts, err := im.decode(ctx, reader)
	if err != nil {
		return nil, err
	}

	slog.Info(config.MsgSeedLoaded,
		config.LogKeyComponent, config.CompVCard,
		config.LogKeyImported, len(contacts),
	)
	return contacts, nil
}

// open picks the data source by scheme.
func (im *Importer) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if u, err := url.Parse(source); err == nil &&
		(u.Scheme == config.SchemeHTTP || u.Scheme == config.SchemeHTTPS) {
		if im.Fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		return im.Fetcher.Fetch(ctx, source)
	}
	if ext := strings.ToLower(filepath.Ext(source)); ext != config.ExtVCF && ext != config.ExtVCard {
		// Still attempted; the decoder decides whether the content is usable.
		slog.Warn(config.MsgSeedOddExt,
			config.LogKeyComponent, config.CompVCard,
			config.LogKeyFile, source,
		)
	}
	return os.Open(source)
}

// decode converts the vCard stream into contacts.
func (im *Importer) decode(ctx context.Context, r io.Reader) ([]Contact, error) {
	decoder := vcard.NewDecoder(r)
	stats := struct{ processed, imported, skipped int }{}
	var contacts []Contact
	today := im.Clock.Now().Format(config.DateFormatFullDash)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Skip and continue to maximize data recovery.
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompVCard,
				config.LogKeyError, err,
			)
			stats.skipped++
			continue
		}
		stats.processed++

		c := Contact{
			ID:              uuid.NewString(),
			Name:            cardName(card),
			Affiliation:     cardValue(card, config.VCardORG),
			Relationship:    RelationshipBusiness,
			Interests:       cardCategories(card),
			Allergies:       cardAllergies(card),
			GiftHistory:     []GiftRecord{},
			LastContactDate: today,
		}
		c.ImportantDates.Birthday = normalizeCardDate(card, config.VCardBDAY)
		c.ImportantDates.WeddingAnniversary = firstNonEmpty(
			normalizeCardDate(card, config.VCardAnniversary),
			normalizeCardDate(card, config.VCardXAnniv),
		)

		if c.Validate() != nil {
			// Cards without a usable name/affiliation cannot become contacts.
			slog.Debug(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompVCard,
				config.LogKeyName, c.Name,
			)
			stats.skipped++
			continue
		}

		contacts = append(contacts, c)
		stats.imported++
	}

	slog.Debug(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompVCard,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, stats.processed),
			slog.Int(config.LogKeyImported, stats.imported),
			slog.Int(config.LogKeySkipped, stats.skipped),
		),
	)
	return contacts, nil
}

// cardName applies the FN (Formatted) > N (Structured) > fallback strategy.
func cardName(card vcard.Card) string {
	if fn := card.Get(config.VCardFN); fn != nil && fn.Value != "" {
		return fn.Value
	}
	if n := card.Get(config.VCardN); n != nil && n.Value != "" {
		return strings.TrimSpace(strings.ReplaceAll(n.Value, ";", " "))
	}
	return config.FallbackName
}

func cardValue(card vcard.Card, field string) string {
	if f := card.Get(field); f != nil {
		// ORG may carry unit components after the company name.
		return strings.TrimSpace(strings.SplitN(f.Value, ";", 2)[0])
	}
	return ""
}

// cardCategories flattens CATEGORIES entries into an interest list.
func cardCategories(card vcard.Card) []string {
	out := []string{}
	for _, f := range card[config.VCardCategories] {
		for _, v := range strings.Split(f.Value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// cardAllergies scans NOTE entries for an allergy line of the form
// "Allergies: shellfish, peanuts" and returns the listed values.
func cardAllergies(card vcard.Card) []string {
	var out []string
	tag := config.AllergyNoteTag
	for _, f := range card[config.VCardNote] {
		for _, line := range strings.Split(f.Value, "\n") {
			line = strings.TrimSpace(line)
			if len(line) < len(tag) || !strings.EqualFold(line[:len(tag)], tag) {
				continue
			}
			for _, v := range strings.Split(line[len(tag):], ",") {
				if v = strings.TrimSpace(v); v != "" {
					out = append(out, v)
				}
			}
		}
	}
	return out
}

// normalizeCardDate parses a vCard date field and re-renders it in the
// canonical contact layout. Unparseable dates are dropped with a log entry.
func normalizeCardDate(card vcard.Card, field string) string {
	f := card.Get(field)
	if f == nil || f.Value == "" {
		return ""
	}
	date, _, err := ParseDate(f.Value)
	if err != nil {
		slog.Debug(config.MsgSkippedDate,
			config.LogKeyComponent, config.CompVCard,
			config.LogKeyValue, f.Value,
		)
		return ""
	}
	return date.Format(config.DateFormatFullDash)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package harvest

import (
	"log/slog"
	"math"
	"strings"

	"steamharvest-backend/lib/scrapers/steamspy"
)

// priceCapUSD drops records whose price decodes to an implausible
// value; a handful of SteamSpy rows carry garbage prices in the
// hundreds of thousands.
const priceCapUSD = 1500

// dimMap assigns surrogate ids to normalized values, first-seen
// order, continuing after the largest id it was seeded with.
type dimMap struct {
	ids    map[string]int64
	nextID int64
}

func newDimMap(seed map[string]int64) *dimMap {
	m := &dimMap{ids: map[string]int64{}}
	for value, id := range seed {
		m.ids[value] = id
		if id >= m.nextID {
			m.nextID = id + 1
		}
	}
	return m
}

// id returns the surrogate id for a normalized value, assigning the
// next free id the first time the value is seen. The second return is
// true when the value was new.
func (m *dimMap) id(value string) (int64, bool) {
	if id, ok := m.ids[value]; ok {
		return id, false
	}
	id := m.nextID
	m.nextID++
	m.ids[value] = id
	return id, true
}

// Normalizer turns raw SteamSpy records into the relational tables.
// Dimension ids are stable across runs when the normalizer is seeded
// with the ids already present in the sink.
type Normalizer struct {
	genres    *dimMap
	languages *dimMap
	tags      *dimMap

	out     Tables
	dropped int
}

func NewNormalizer(seed DimensionSeed) *Normalizer {
	return &Normalizer{
		genres:    newDimMap(seed.Genres),
		languages: newDimMap(seed.Languages),
		tags:      newDimMap(seed.Tags),
	}
}

// Add normalizes one record into the output tables. Records missing a
// name, developer or publisher are dropped, as are records whose price
// exceeds the plausibility cap. It returns false when the record was
// dropped.
func (n *Normalizer) Add(rec *steamspy.Record) bool {
	name := strings.TrimSpace(rec.Name)
	developer := strings.TrimSpace(rec.Developer)
	publisher := strings.TrimSpace(rec.Publisher)
	if name == "" || developer == "" || publisher == "" {
		n.dropped++
		slog.Debug("dropping app with missing identity fields", "appid", rec.AppID)
		return false
	}

	price := centsToUSD(rec.Price)
	if price != nil && *price > priceCapUSD {
		n.dropped++
		slog.Debug("dropping app with implausible price", "appid", rec.AppID, "price_usd", *price)
		return false
	}

	ownersMin, ownersMax := parseOwners(rec.Owners)

	app := App{
		IDApp:            rec.AppID,
		Name:             name,
		Developer:        developer,
		Publisher:        publisher,
		OwnersMin:        ownersMin,
		OwnersMax:        ownersMax,
		AverageForeverHs: minutesToHours(rec.AverageForever),
		Average2WeeksHs:  minutesToHours(rec.Average2Weeks),
		MedianForeverHs:  minutesToHours(rec.MedianForever),
		Median2WeeksHs:   minutesToHours(rec.Median2Weeks),
		PeakCCUYesterday: rec.CCU.Ptr(),
		PriceUSD:         price,
		InitialPriceUSD:  centsToUSD(rec.InitialPrice),
		Discount:         rec.Discount.Ptr(),
	}
	n.out.Apps = append(n.out.Apps, app)

	n.addGenres(rec.AppID, rec.Genre)
	n.addLanguages(rec.AppID, rec.Languages)
	n.addTags(rec.AppID, rec.Tags)
	return true
}

func (n *Normalizer) addGenres(appID int64, raw string) {
	seen := map[int64]bool{}
	for _, genre := range splitList(raw) {
		normalized := strings.ToLower(genre)
		id, isNew := n.genres.id(normalized)
		if isNew {
			n.out.Genres = append(n.out.Genres, Dimension{ID: id, Value: normalized})
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		n.out.AppsGenres = append(n.out.AppsGenres, AppGenre{IDApp: appID, IDGenre: id})
	}
}

func (n *Normalizer) addLanguages(appID int64, raw string) {
	seen := map[int64]bool{}
	for _, lang := range cleanLanguages(raw) {
		normalized := CanonicalLanguage(lang)
		if normalized == "" {
			continue
		}
		id, isNew := n.languages.id(normalized)
		if isNew {
			n.out.Languages = append(n.out.Languages, Language{ID: id, Value: lang, Normalized: normalized})
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		n.out.AppsLanguages = append(n.out.AppsLanguages, AppLanguage{IDApp: appID, IDLanguage: id})
	}
}

func (n *Normalizer) addTags(appID int64, votes steamspy.TagVotes) {
	seen := map[int64]bool{}
	for _, tag := range votes {
		normalized := strings.ToLower(strings.TrimSpace(tag.Name))
		if normalized == "" {
			continue
		}
		id, isNew := n.tags.id(normalized)
		if isNew {
			n.out.Tags = append(n.out.Tags, Dimension{ID: id, Value: normalized})
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		n.out.AppsTags = append(n.out.AppsTags, AppTag{IDApp: appID, IDTag: id, Count: tag.Votes})
	}
}

// Tables returns everything normalized so far.
func (n *Normalizer) Tables() Tables { return n.out }

// Dropped reports how many records Add rejected.
func (n *Normalizer) Dropped() int { return n.dropped }

// centsToUSD converts an integer cent amount to dollars, nil when the
// source value was absent.
func centsToUSD(v steamspy.FlexInt) *float64 {
	if !v.Valid {
		return nil
	}
	usd := float64(v.Value) / 100
	return &usd
}

// minutesToHours converts playtime minutes to hours rounded to two
// decimals, nil when the source value was absent.
func minutesToHours(v steamspy.FlexInt) *float64 {
	if !v.Valid {
		return nil
	}
	hours := math.Round(float64(v.Value)/60*100) / 100
	return &hours
}

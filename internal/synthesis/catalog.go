package synthesis

import "sort"

// Speaker is one (character, style) entry of the VOICEVOX catalog.
type Speaker struct {
	Character string
	Style     string
	ID        int
}

// Catalog is the static read-only mapping from (character, style) to the
// engine's speaker id. It is never mutated at runtime; speaker ids coming
// from users are validated against it before any synthesis call.
type Catalog struct {
	byID map[int]Speaker
}

// DefaultCatalog covers the stock VOICEVOX voices the bot exposes.
func DefaultCatalog() *Catalog {
	speakers := []Speaker{
		{"四国めたん", "あまあま", 0},
		{"ずんだもん", "あまあま", 1},
		{"四国めたん", "ノーマル", 2},
		{"ずんだもん", "ノーマル", 3},
		{"四国めたん", "セクシー", 4},
		{"ずんだもん", "セクシー", 5},
		{"四国めたん", "ツンツン", 6},
		{"ずんだもん", "ツンツン", 7},
		{"春日部つむぎ", "ノーマル", 8},
		{"波音リツ", "ノーマル", 9},
		{"雨晴はう", "ノーマル", 10},
		{"玄野武宏", "ノーマル", 11},
		{"白上虎太郎", "ふつう", 12},
		{"青山龍星", "ノーマル", 13},
		{"冥鳴ひまり", "ノーマル", 14},
		{"九州そら", "あまあま", 15},
		{"九州そら", "ノーマル", 16},
		{"もち子さん", "ノーマル", 20},
		{"剣崎雌雄", "ノーマル", 21},
	}

	byID := make(map[int]Speaker, len(speakers))
	for _, s := range speakers {
		byID[s.ID] = s
	}
	return &Catalog{byID: byID}
}

// Contains reports whether id is a known speaker id.
func (c *Catalog) Contains(id int) bool {
	_, ok := c.byID[id]
	return ok
}

// Lookup returns the catalog entry for id.
func (c *Catalog) Lookup(id int) (Speaker, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// Speakers returns all entries ordered by id, for the /speakers listing.
func (c *Catalog) Speakers() []Speaker {
	out := make([]Speaker, 0, len(c.byID))
	for _, s := range c.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Package music serves the focus-music track catalog.
package music

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"growwly/internal/apperr"
)

//go:embed tracks.yaml
var builtin []byte

const (
	defaultDuration = 180
	defaultGenre    = "lofi"
)

type Track struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Artist      string    `json:"artist" yaml:"artist"`
	Description string    `json:"description" yaml:"description"`
	URL         string    `json:"url" yaml:"url"`
	Duration    int       `json:"duration" yaml:"duration"`
	Genre       string    `json:"genre" yaml:"genre"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
}

// Catalog is an in-memory track list. Added tracks live until restart.
type Catalog struct {
	mu     sync.RWMutex
	tracks []Track
	rng    *rand.Rand
	now    func() time.Time
}

// Load parses a YAML track list.
func Load(data []byte, rng *rand.Rand) (*Catalog, error) {
	var tracks []Track
	if err := yaml.Unmarshal(data, &tracks); err != nil {
		return nil, fmt.Errorf("parse track catalog: %w", err)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	c := &Catalog{tracks: tracks, rng: rng, now: time.Now}
	loaded := c.now().UTC()
	for i := range c.tracks {
		c.tracks[i].CreatedAt = loaded
	}
	return c, nil
}

// Builtin returns the catalog shipped with the binary.
func Builtin() *Catalog {
	c, err := Load(builtin, nil)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) filtered(genre string) []Track {
	out := make([]Track, 0, len(c.tracks))
	for _, t := range c.tracks {
		if genre == "" || strings.EqualFold(t.Genre, genre) {
			out = append(out, t)
		}
	}
	return out
}

// List returns tracks of genre (all when empty), at most limit when limit > 0.
func (c *Catalog) List(genre string, limit int) []Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tracks := c.filtered(genre)
	if limit > 0 && limit < len(tracks) {
		tracks = tracks[:limit]
	}
	return tracks
}

func (c *Catalog) Get(id string) (Track, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.tracks {
		if t.ID == id {
			return t, nil
		}
	}
	return Track{}, apperr.NotFound("track %s", id)
}

// Random returns up to count distinct tracks in shuffled order.
func (c *Catalog) Random(count int, genre string) []Track {
	if count <= 0 {
		count = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	tracks := c.filtered(genre)
	c.rng.Shuffle(len(tracks), func(i, j int) { tracks[i], tracks[j] = tracks[j], tracks[i] })
	return tracks[:min(count, len(tracks))]
}

// Add validates and appends a track, filling the default duration and genre.
func (c *Catalog) Add(t Track) (Track, error) {
	for _, f := range []struct{ name, value string }{
		{"title", t.Title}, {"artist", t.Artist}, {"url", t.URL},
	} {
		if strings.TrimSpace(f.value) == "" {
			return Track{}, apperr.Validation("missing required field: %s", f.name)
		}
	}
	if t.Duration <= 0 {
		t.Duration = defaultDuration
	}
	if t.Genre == "" {
		t.Genre = defaultGenre
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	t.ID = strconv.Itoa(len(c.tracks) + 1)
	t.CreatedAt = c.now().UTC()
	c.tracks = append(c.tracks, t)
	return t, nil
}

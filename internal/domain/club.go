package domain

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ClubSpec is one entry of the batch roster.
type ClubSpec struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// Slug returns the filesystem-safe identifier for the club.
func (c ClubSpec) Slug() string {
	return Slug(c.Name)
}

// RawFilename is the name of the generated image without text.
func (c ClubSpec) RawFilename() string {
	return c.Slug() + ".jpg"
}

// FinalFilename is the name of the annotated image.
func (c ClubSpec) FinalFilename() string {
	return c.Slug() + "_new.jpg"
}

var defaultClubs = []ClubSpec{
	{Name: "Man United Club", Color: "red"},
	{Name: "Chelsea FC", Color: "royal blue"},
	{Name: "Everton Club", Color: "deep blue"},
	{Name: "Fulham Town", Color: "white and black"},
	{Name: "Burnley Club", Color: "claret and sky blue"},
	{Name: "Liverpool FC", Color: "red and white"},
	{Name: "Wolves United", Color: "gold and black"},
	{Name: "Tottenham Club", Color: "navy and white"},
	{Name: "Man City FC", Color: "sky blue"},
	{Name: "Leeds United FC", Color: "yellow and blue"},
	{Name: "Newcastle Club", Color: "black and white"},
	{Name: "Sunderland FC", Color: "red and white"},
	{Name: "West Ham Club", Color: "claret and blue"},
	{Name: "Nottingham FC", Color: "red and white"},
	{Name: "Crystal Palace FC", Color: "blue and red"},
	{Name: "Aston Villa Club", Color: "claret and sky blue"},
	{Name: "Brighton Club", Color: "blue and white"},
	{Name: "Bournemouth Club", Color: "red and black"},
	{Name: "Brentford Club", Color: "red and white"},
}

// DefaultClubs returns a copy of the built-in roster.
func DefaultClubs() []ClubSpec {
	out := make([]ClubSpec, len(defaultClubs))
	copy(out, defaultClubs)
	return out
}

// LoadClubs reads a YAML roster from path. An empty path yields the built-in
// roster.
func LoadClubs(path string) ([]ClubSpec, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultClubs(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clubs file: %w", err)
	}
	var clubs []ClubSpec
	if err := yaml.Unmarshal(data, &clubs); err != nil {
		return nil, fmt.Errorf("decode clubs file: %w", err)
	}
	if err := ValidateClubs(clubs); err != nil {
		return nil, fmt.Errorf("clubs file %s: %w", path, err)
	}
	return clubs, nil
}

// ValidateClubs rejects an empty roster and entries without name or color.
func ValidateClubs(clubs []ClubSpec) error {
	if len(clubs) == 0 {
		return ErrEmptyRoster
	}
	for i, club := range clubs {
		if strings.TrimSpace(club.Name) == "" {
			return fmt.Errorf("%w: entry %d has no name", ErrInvalidClub, i+1)
		}
		if strings.TrimSpace(club.Color) == "" {
			return fmt.Errorf("%w: %q has no color", ErrInvalidClub, club.Name)
		}
		if Slug(club.Name) == "" {
			return fmt.Errorf("%w: %q has an empty slug", ErrInvalidClub, club.Name)
		}
	}
	return nil
}

// Slug lowercases name and replaces every rune outside [a-z0-9] with an
// underscore. Applying it twice gives the same result.
func Slug(name string) string {
	lowered := cases.Lower(language.Und).String(name)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

package en

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed data/lexicon.yaml
var lexiconYAML []byte

// currency names one currency symbol. Currencies without a minor unit leave
// the minor names empty.
type currency struct {
	Symbol        string `yaml:"symbol"`
	Major         string `yaml:"major"`
	MajorSingular string `yaml:"major_singular"`
	Minor         string `yaml:"minor"`
	MinorSingular string `yaml:"minor_singular"`
}

type unit struct {
	Singular string `yaml:"singular"`
	Plural   string `yaml:"plural"`
}

// lexicon is the vocabulary the English packs are built from.
type lexicon struct {
	Zero         string            `yaml:"zero"`
	Digits       map[string]string `yaml:"digits"`
	Teens        map[string]string `yaml:"teens"`
	Tens         map[string]string `yaml:"tens"`
	Ordinals     map[string]string `yaml:"ordinals"`
	Scales       []string          `yaml:"scales"`
	Months       []string          `yaml:"months"`
	TimeZones    map[string]string `yaml:"time_zones"`
	Currencies   []currency        `yaml:"currencies"`
	Units        map[string]unit   `yaml:"units"`
	Math         map[string]string `yaml:"math"`
	Superscripts map[string]string `yaml:"superscripts"`
	Whitelist    map[string]string `yaml:"whitelist"`
}

func loadLexicon() (*lexicon, error) {
	var lx lexicon
	if err := yaml.Unmarshal(lexiconYAML, &lx); err != nil {
		return nil, fmt.Errorf("en: parse lexicon: %w", err)
	}
	if err := lx.validate(); err != nil {
		return nil, fmt.Errorf("en: lexicon: %w", err)
	}
	return &lx, nil
}

func (lx *lexicon) validate() error {
	switch {
	case lx.Zero == "":
		return fmt.Errorf("missing zero")
	case len(lx.Digits) != 9:
		return fmt.Errorf("want 9 digits, got %d", len(lx.Digits))
	case len(lx.Teens) != 10:
		return fmt.Errorf("want 10 teens, got %d", len(lx.Teens))
	case len(lx.Tens) != 8:
		return fmt.Errorf("want 8 tens, got %d", len(lx.Tens))
	case len(lx.Months) != 12:
		return fmt.Errorf("want 12 months, got %d", len(lx.Months))
	}
	for _, c := range lx.Currencies {
		if c.Symbol == "" || c.Major == "" || c.MajorSingular == "" {
			return fmt.Errorf("currency %q: missing names", c.Symbol)
		}
		if (c.Minor == "") != (c.MinorSingular == "") {
			return fmt.Errorf("currency %q: incomplete minor unit", c.Symbol)
		}
	}
	for k, u := range lx.Units {
		if u.Singular == "" || u.Plural == "" {
			return fmt.Errorf("unit %q: missing names", k)
		}
	}
	return nil
}

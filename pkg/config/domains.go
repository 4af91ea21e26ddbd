// ABOUTME: Loader for the per-domain fetch policy table
// ABOUTME: The table is data read from YAML so domains can be added without a rebuild

package config

import (
	"bytes"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"content-fetch-api/core/domain"
	"content-fetch-api/pkg/utils/hostname"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// DomainEntry is one resolved row of the policy table
type DomainEntry struct {
	AllowHeadless bool     `yaml:"allow_headless"`
	MinDelay      Duration `yaml:"min_delay"`
	MaxDelay      Duration `yaml:"max_delay"`
	Timeout       Duration `yaml:"timeout"`
	MaxRetries    int      `yaml:"max_retries"`
}

// DomainTable maps domain suffixes to fetch policies
type DomainTable struct {
	Default DomainEntry            `yaml:"default"`
	Domains map[string]DomainEntry `yaml:"domains"`
}

// entryFile is a row as written in YAML. Nil fields were absent and inherit;
// an explicit zero such as max_retries: 0 is kept.
type entryFile struct {
	AllowHeadless *bool     `yaml:"allow_headless"`
	MinDelay      *Duration `yaml:"min_delay"`
	MaxDelay      *Duration `yaml:"max_delay"`
	Timeout       *Duration `yaml:"timeout"`
	MaxRetries    *int      `yaml:"max_retries"`
}

type tableFile struct {
	Default entryFile            `yaml:"default"`
	Domains map[string]entryFile `yaml:"domains"`
}

// strictEntry is the policy for financial-brand sites that fingerprint aggressively
var strictEntry = DomainEntry{
	AllowHeadless: true,
	MinDelay:      DurationFrom(2 * time.Second),
	MaxDelay:      DurationFrom(4 * time.Second),
	Timeout:       DurationFrom(15 * time.Second),
	MaxRetries:    3,
}

// BuiltinDomainTable returns the table used when no policy file is configured
func BuiltinDomainTable() *DomainTable {
	return &DomainTable{
		Default: DomainEntry{
			AllowHeadless: false,
			MinDelay:      DurationFrom(1 * time.Second),
			MaxDelay:      DurationFrom(2500 * time.Millisecond),
			Timeout:       DurationFrom(10 * time.Second),
			MaxRetries:    3,
		},
		Domains: map[string]DomainEntry{
			"mastercard.com":      strictEntry,
			"visa.com":            strictEntry,
			"americanexpress.com": strictEntry,
			"discover.com":        strictEntry,
			"chase.com":           strictEntry,
			"bankofamerica.com":   strictEntry,
		},
	}
}

// LoadDomainTable reads the table from path, or returns the built-in table when path is empty
func LoadDomainTable(path string) (*DomainTable, error) {
	if strings.TrimSpace(path) == "" {
		return BuiltinDomainTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read domain policy file %s", path)
	}
	table, err := ParseDomainTable(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "domain policy file %s", path)
	}
	return table, nil
}

// ParseDomainTable decodes YAML, rejecting unknown fields, and fills inherited values
func ParseDomainTable(r io.Reader) (*DomainTable, error) {
	base := BuiltinDomainTable()
	var file tableFile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decode domain table")
	}

	table := &DomainTable{
		Default: file.Default.inherit(base.Default),
		Domains: make(map[string]DomainEntry, len(file.Domains)),
	}
	for key, entry := range file.Domains {
		k := hostname.Normalize(key)
		if k == "" {
			return nil, errors.Newf("empty domain key %q", key)
		}
		table.Domains[k] = entry.inherit(table.Default)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// inherit fills the fields absent from the file with from's values
func (f entryFile) inherit(from DomainEntry) DomainEntry {
	e := from
	if f.AllowHeadless != nil {
		e.AllowHeadless = *f.AllowHeadless
	}
	if f.MinDelay != nil {
		e.MinDelay = *f.MinDelay
	}
	if f.MaxDelay != nil {
		e.MaxDelay = *f.MaxDelay
	}
	if f.Timeout != nil {
		e.Timeout = *f.Timeout
	}
	if f.MaxRetries != nil {
		e.MaxRetries = *f.MaxRetries
	}
	return e
}

// Validate checks delay bounds and budgets for every row
func (t *DomainTable) Validate() error {
	check := func(name string, e DomainEntry) error {
		if e.MinDelay.Duration < 0 || e.MaxDelay.Duration < e.MinDelay.Duration {
			return errors.Newf("%s: max_delay %s must be >= min_delay %s", name, e.MaxDelay.Duration, e.MinDelay.Duration)
		}
		if e.Timeout.Duration <= 0 {
			return errors.Newf("%s: timeout must be positive", name)
		}
		if e.MaxRetries < 0 {
			return errors.Newf("%s: max_retries cannot be negative", name)
		}
		return nil
	}
	if err := check("default", t.Default); err != nil {
		return err
	}
	keys := make([]string, 0, len(t.Domains))
	for k := range t.Domains {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := check(k, t.Domains[k]); err != nil {
			return err
		}
	}
	return nil
}

// Policies converts the table into domain policies keyed by suffix
func (t *DomainTable) Policies() (domain.DomainPolicy, map[string]domain.DomainPolicy) {
	def := t.Default.policy("", domain.PolicySourceDefault)
	out := make(map[string]domain.DomainPolicy, len(t.Domains))
	for k, e := range t.Domains {
		out[k] = e.policy(k, domain.PolicySourceTable)
	}
	return def, out
}

func (e DomainEntry) policy(key string, source domain.PolicySource) domain.DomainPolicy {
	return domain.DomainPolicy{
		Domain:        key,
		AllowHeadless: e.AllowHeadless,
		MinDelay:      e.MinDelay.Duration,
		MaxDelay:      e.MaxDelay.Duration,
		Timeout:       e.Timeout.Duration,
		MaxRetries:    e.MaxRetries,
		Source:        source,
	}
}

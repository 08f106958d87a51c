package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"reflect"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/relloyd/silverpipe/constants"
	h "github.com/relloyd/silverpipe/helper"
	yamlv2 "gopkg.in/yaml.v2"
)

const (
	MainDir            = ".silverpipe"
	MainFileNamePrefix = "config"
	MainFileNameExt    = "yaml"
	MainFileFullName   = MainFileNamePrefix + "." + MainFileNameExt
)

// FileNotFoundError denotes failing to find configuration file.
type FileNotFoundError struct {
	name string
}

// Error returns the formatted configuration error.
func (f FileNotFoundError) Error() string {
	return fmt.Sprintf("config file %q not found", f.name)
}

type LogConfig struct {
	Level      string `yaml:"level" json:"level" mapstructure:"level"`
	PrintStack bool   `yaml:"print_stack" json:"print_stack" mapstructure:"print_stack"`
}

type StoreConfig struct {
	Type      string `yaml:"type" json:"type" mapstructure:"type" mandatory:"yes" errorTxt:"store type"`
	DSN       string `yaml:"dsn" json:"dsn" mapstructure:"dsn" secret:"yes"` // directory, s3:// URL, Azure connection string or database URL
	Container string `yaml:"container" json:"container" mapstructure:"container"`
	Table     string `yaml:"table" json:"table" mapstructure:"table"`
	Region    string `yaml:"region" json:"region" mapstructure:"region"`
	RawPrefix string `yaml:"raw_prefix" json:"raw_prefix" mapstructure:"raw_prefix"`
}

type SilverConfig struct {
	Prefix        string   `yaml:"prefix" json:"prefix" mapstructure:"prefix"`
	KeyColumns    []string `yaml:"key_columns" json:"key_columns" mapstructure:"key_columns"`
	EbayPromoRule string   `yaml:"ebay_promo_rule" json:"ebay_promo_rule" mapstructure:"ebay_promo_rule"`
	Parallel      bool     `yaml:"parallel" json:"parallel" mapstructure:"parallel"`
}

type WalmartConfig struct {
	ConsumerID     string `yaml:"consumer_id" json:"consumer_id" mapstructure:"consumer_id"`
	KeyVersion     string `yaml:"key_version" json:"key_version" mapstructure:"key_version"`
	PrivateKeyFile string `yaml:"private_key_file" json:"private_key_file" mapstructure:"private_key_file"`
	BaseURL        string `yaml:"base_url" json:"base_url" mapstructure:"base_url"`
	BatchSize      int    `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
	IntervalMs     int    `yaml:"interval_ms" json:"interval_ms" mapstructure:"interval_ms"`
	MasterFile     string `yaml:"master_file" json:"master_file" mapstructure:"master_file"`
}

type EbayConfig struct {
	ClientID      string `yaml:"client_id" json:"client_id" mapstructure:"client_id"`
	ClientSecret  string `yaml:"client_secret" json:"client_secret" mapstructure:"client_secret" secret:"yes"`
	Environment   string `yaml:"environment" json:"environment" mapstructure:"environment"`
	MarketplaceID string `yaml:"marketplace_id" json:"marketplace_id" mapstructure:"marketplace_id"`
	BaseURL       string `yaml:"base_url" json:"base_url" mapstructure:"base_url"`
	IntervalMs    int    `yaml:"interval_ms" json:"interval_ms" mapstructure:"interval_ms"`
	MatchesFile   string `yaml:"matches_file" json:"matches_file" mapstructure:"matches_file"`
	MasterFile    string `yaml:"master_file" json:"master_file" mapstructure:"master_file"`
}

type ServerConfig struct {
	Port int `yaml:"port" json:"port" mapstructure:"port"`
}

// Config is the effective configuration of a silverpipe process.
type Config struct {
	Log     LogConfig     `yaml:"log" json:"log"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Silver  SilverConfig  `yaml:"silver" json:"silver"`
	Walmart WalmartConfig `yaml:"walmart" json:"walmart"`
	Ebay    EbayConfig    `yaml:"ebay" json:"ebay"`
	Server  ServerConfig  `yaml:"server" json:"server"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Log:     LogConfig{Level: "info"},
		Store:   StoreConfig{Type: constants.StoreTypeFile, DSN: "data", Container: constants.DefaultRawContainer, Table: "blobs", RawPrefix: constants.DefaultRawPrefix},
		Silver:  SilverConfig{Prefix: constants.DefaultSilverPrefix, KeyColumns: constants.DefaultKeyColumns},
		Walmart: WalmartConfig{KeyVersion: "1", BatchSize: 20, IntervalMs: 350, MasterFile: "master_skus.csv"},
		Ebay:    EbayConfig{Environment: "PRODUCTION", MarketplaceID: "EBAY_US", IntervalMs: 300, MatchesFile: "ebay_matches.csv", MasterFile: "master_skus.csv"},
		Server:  ServerConfig{Port: 8080},
	}
}

// Load reads the YAML file at fileName over the defaults and then applies SP_* environment overrides.
// An empty fileName means ~/.silverpipe/config.yaml, which may be absent. A named file must exist.
func Load(fileName string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := Defaults()
	explicit := fileName != ""
	if !explicit {
		var err error
		if fileName, err = DefaultPath(); err != nil {
			return nil, err
		}
	} else {
		var err error
		if fileName, err = homedir.Expand(fileName); err != nil {
			return nil, err
		}
	}
	if err := cfg.readFile(fileName); err != nil {
		if _, ok := err.(FileNotFoundError); !ok || explicit {
			return nil, err
		}
	}
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if err := cfg.ApplyEnv(lookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(fileName string) error {
	if !fileExists(fileName) {
		return FileNotFoundError{fileName}
	}
	b, err := ioutil.ReadFile(fileName)
	if err != nil {
		return err
	}
	if err := yamlv2.Unmarshal(b, c); err != nil {
		return fmt.Errorf("error parsing config file %v: %w", fileName, err)
	}
	return nil
}

// Save writes c as YAML to fileName, creating its directory.
func (c *Config) Save(fileName string) error {
	b, err := yamlv2.Marshal(c)
	if err != nil {
		return err
	}
	if err := makeDir(path.Dir(fileName)); err != nil {
		return err
	}
	return ioutil.WriteFile(fileName, b, 0600)
}

// ApplyEnv overrides settings from variables named SP_<SECTION>_<KEY>, e.g. SP_STORE_DSN or SP_SILVER_KEY_COLUMNS.
// Empty variables are ignored. Lists are comma separated.
func (c *Config) ApplyEnv(lookupEnv func(string) (string, bool)) error {
	sections := map[string]interface{}{
		"log": &c.Log, "store": &c.Store, "silver": &c.Silver,
		"walmart": &c.Walmart, "ebay": &c.Ebay, "server": &c.Server,
	}
	for name, section := range sections {
		values := make(map[string]interface{})
		typ := reflect.TypeOf(section).Elem()
		for i := 0; i < typ.NumField(); i++ {
			key := typ.Field(i).Tag.Get("mapstructure")
			if v, ok := lookupEnv(h.GetEnvVarName(name + "." + key)); ok && strings.TrimSpace(v) != "" {
				values[key] = strings.TrimSpace(v)
			}
		}
		if len(values) == 0 {
			continue
		}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
			WeaklyTypedInput: true,
			Result:           section,
		})
		if err != nil {
			return err
		}
		if err := dec.Decode(values); err != nil {
			return fmt.Errorf("error reading %v settings from the environment: %w", name, err)
		}
	}
	c.Silver.KeyColumns = h.UniqueStrings(c.Silver.KeyColumns)
	return nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if err := h.ValidateStructIsPopulated(c); err != nil {
		return err
	}
	switch c.Store.Type {
	case constants.StoreTypeMemory, constants.StoreTypeFile, constants.StoreTypeS3, constants.StoreTypeAzure, constants.StoreTypeSQL:
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	if c.Store.Type != constants.StoreTypeMemory && c.Store.DSN == "" {
		return fmt.Errorf("store dsn is required for store type %q", c.Store.Type)
	}
	return nil
}

// Obfuscated returns a copy of c with secrets masked.
func (c *Config) Obfuscated() *Config {
	cp := *c
	cp.Silver.KeyColumns = append([]string(nil), c.Silver.KeyColumns...)
	for _, section := range []interface{}{&cp.Store, &cp.Ebay} {
		v := reflect.ValueOf(section).Elem()
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).Tag.Get("secret") == "yes" && v.Field(i).Kind() == reflect.String {
				v.Field(i).SetString(h.Obfuscate(v.Field(i).String()))
			}
		}
	}
	return &cp
}

// Show renders the obfuscated config as YAML.
func (c *Config) Show() (string, error) {
	b, err := yaml.Marshal(c.Obfuscated())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

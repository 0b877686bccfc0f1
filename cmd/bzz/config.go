// Copyright 2019 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bufio"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethersphere/bzzclient/api/client"
	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"
)

// environment variables read by the flags
const (
	BZZ_ENV_API     = "BZZ_API"
	BZZ_ENV_TIMEOUT = "BZZ_TIMEOUT"
	BZZ_ENV_KEY     = "BZZ_KEY"
)

var (
	DumpConfigCommand = &cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "",
		Category:    "MISCELLANEOUS COMMANDS",
		Description: `The dumpconfig command shows configuration values.`,
	}

	ConfigPathFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
)

// Duration is a time.Duration written as "30s" in TOML files
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// bzzConfig is the configuration of the command line client
type bzzConfig struct {
	BzzAPI       string
	Timeout      Duration
	KeyFile      string // hex encoded private key
	KeyStoreFile string // encrypted key, unlocked with PasswordFile
	PasswordFile string
	User         string // default feed owner, the signer address when empty
}

func defaultConfig() *bzzConfig {
	return &bzzConfig{
		BzzAPI:  client.DefaultGateway,
		Timeout: Duration(time.Minute),
	}
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// buildConfig layers the config file, the environment and the command line
// on top of the defaults, in that order
func buildConfig(ctx *cli.Context) (*bzzConfig, error) {
	config := defaultConfig()
	if err := configFileOverride(config, ctx); err != nil {
		return nil, err
	}
	cmdLineOverride(config, ctx)
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func configFileOverride(config *bzzConfig, ctx *cli.Context) error {
	if !ctx.IsSet(ConfigPathFlag.Name) {
		return nil
	}
	path := ctx.String(ConfigPathFlag.Name)
	if path == "" {
		return errors.New("config file flag provided with invalid file path")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(config)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	return err
}

// cmdLineOverride applies flags that were set explicitly or through their
// environment variable
func cmdLineOverride(config *bzzConfig, ctx *cli.Context) {
	if ctx.IsSet(BzzAPIFlag.Name) {
		config.BzzAPI = ctx.String(BzzAPIFlag.Name)
	}
	if ctx.IsSet(TimeoutFlag.Name) {
		config.Timeout = Duration(ctx.Duration(TimeoutFlag.Name))
	}
	if ctx.IsSet(KeyFileFlag.Name) {
		config.KeyFile = ctx.String(KeyFileFlag.Name)
	}
	if ctx.IsSet(KeyStoreFlag.Name) {
		config.KeyStoreFile = ctx.String(KeyStoreFlag.Name)
	}
	if ctx.IsSet(PasswordFileFlag.Name) {
		config.PasswordFile = ctx.String(PasswordFileFlag.Name)
	}
	if ctx.IsSet(FeedUserFlag.Name) {
		config.User = ctx.String(FeedUserFlag.Name)
	}
}

func validateConfig(config *bzzConfig) error {
	if !strings.HasPrefix(config.BzzAPI, "http://") && !strings.HasPrefix(config.BzzAPI, "https://") {
		return fmt.Errorf("invalid gateway URL %q", config.BzzAPI)
	}
	if config.Timeout < 0 {
		return fmt.Errorf("invalid timeout %v", time.Duration(config.Timeout))
	}
	if config.KeyFile != "" && config.KeyStoreFile != "" {
		return errors.New("both a key file and a keystore file are configured")
	}
	if config.User != "" && !common.IsHexAddress(config.User) {
		return fmt.Errorf("invalid feed user %q", config.User)
	}
	return nil
}

// loadKey returns the configured signing key, nil without one
func loadKey(config *bzzConfig) (*ecdsa.PrivateKey, error) {
	switch {
	case config.KeyFile != "":
		key, err := crypto.LoadECDSA(config.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("error loading key file: %w", err)
		}
		return key, nil

	case config.KeyStoreFile != "":
		keyjson, err := os.ReadFile(config.KeyStoreFile)
		if err != nil {
			return nil, fmt.Errorf("error reading keystore file: %w", err)
		}
		var password string
		if config.PasswordFile != "" {
			text, err := os.ReadFile(config.PasswordFile)
			if err != nil {
				return nil, fmt.Errorf("error reading password file: %w", err)
			}
			password = strings.TrimRight(string(text), "\r\n")
		}
		key, err := keystore.DecryptKey(keyjson, password)
		if err != nil {
			return nil, fmt.Errorf("error decrypting key: %w", err)
		}
		return key.PrivateKey, nil
	}
	return nil, nil
}

// makeClient builds the gateway client and the default feed user from the
// effective configuration
func makeClient(ctx *cli.Context) (*client.Client, common.Address, error) {
	config, err := buildConfig(ctx)
	if err != nil {
		return nil, common.Address{}, err
	}
	key, err := loadKey(config)
	if err != nil {
		return nil, common.Address{}, err
	}
	cfg := client.Config{
		Gateway: config.BzzAPI,
		Timeout: time.Duration(config.Timeout),
	}
	if ctx.Bool(UploadTarFlag.Name) {
		cfg.FormEncoder = client.TarEncoder{}
	}
	var user common.Address
	if key != nil {
		cfg.Signer = client.NewKeySigner(key)
		user = crypto.PubkeyToAddress(key.PublicKey)
	}
	if config.User != "" {
		user = common.HexToAddress(config.User)
	}
	return client.New(cfg), user, nil
}

func dumpConfig(ctx *cli.Context) error {
	config, err := buildConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(config)
	if err != nil {
		return err
	}
	ctx.App.Writer.Write(out)
	return nil
}

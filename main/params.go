// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"flag"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	versionKey     = "version"
	httpHostKey    = "http-host"
	httpPortKey    = "http-port"
	dbDirKey       = "db-dir"
	genesisFileKey = "genesis-file"
)

// Config holds the daemon's settings, resolved from flags and environment.
type Config struct {
	PrintVersion bool
	HTTPHost     string
	HTTPPort     uint
	DBDir        string
	GenesisFile  string
}

func buildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("slotvm", flag.ContinueOnError)

	fs.Bool(versionKey, false, "If true, prints version and quit")
	fs.String(httpHostKey, "127.0.0.1", "Host to bind the API server to")
	fs.Uint(httpPortKey, 8765, "Port to bind the API server to")
	fs.String(dbDirKey, "", "Directory for the slot database; empty runs in memory")
	fs.String(genesisFileKey, "", "Path to the JSON genesis schema definition")

	return fs
}

// getViper returns the viper environment for the daemon. Flags win over
// environment variables; a .env file in the working directory, if present,
// is folded into the environment first.
func getViper() (*viper.Viper, error) {
	// Missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("slotvm")
	v.AutomaticEnv()

	fs := buildFlagSet()
	pflag.CommandLine.AddGoFlagSet(fs)
	pflag.Parse()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	return v, nil
}

func getConfig() (Config, error) {
	v, err := getViper()
	if err != nil {
		return Config{}, err
	}

	return Config{
		PrintVersion: v.GetBool(versionKey),
		HTTPHost:     v.GetString(httpHostKey),
		HTTPPort:     v.GetUint(httpPortKey),
		DBDir:        v.GetString(dbDirKey),
		GenesisFile:  v.GetString(genesisFileKey),
	}, nil
}

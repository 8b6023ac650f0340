// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/leveldb"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/utils/logging"

	"github.com/ava-labs/slotvm/slotvm"
)

func main() {
	config, err := getConfig()
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}
	// Print version and exit
	if config.PrintVersion {
		fmt.Printf("%s@%s\n", slotvm.Name, slotvm.Version)
		os.Exit(0)
	}

	if err := run(config); err != nil {
		fmt.Printf("daemon returned an error: %s\n", err)
		os.Exit(1)
	}
}

func run(config Config) error {
	db, err := openDatabase(config.DBDir)
	if err != nil {
		return fmt.Errorf("couldn't open database: %w", err)
	}

	genesisBytes, err := readGenesis(config.GenesisFile)
	if err != nil {
		return err
	}

	vm := &slotvm.VM{}
	if err := vm.Initialize(db, genesisBytes); err != nil {
		return fmt.Errorf("couldn't initialize vm: %w", err)
	}

	mux := http.NewServeMux()
	handlers, err := vm.CreateHandlers()
	if err != nil {
		return err
	}
	for path, handler := range handlers {
		mux.Handle("/rpc"+path, handler)
	}
	staticHandlers, err := vm.CreateStaticHandlers()
	if err != nil {
		return err
	}
	for path, handler := range staticHandlers {
		mux.Handle("/rpc/static"+path, handler)
	}

	addr := fmt.Sprintf("%s:%d", config.HTTPHost, config.HTTPPort)
	server := &http.Server{Addr: addr, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("serving slotvm API", "addr", addr)
		errChan <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		_ = vm.Shutdown()
		return err
	case sig := <-sigChan:
		log.Info("shutting down", "signal", sig)
		_ = server.Close()
		return vm.Shutdown()
	}
}

// openDatabase opens a leveldb at [dbDir], or an in-memory database when no
// directory is configured.
func openDatabase(dbDir string) (database.Database, error) {
	if dbDir == "" {
		log.Warn("no db-dir configured, using an in-memory database")
		return memdb.New(), nil
	}
	return leveldb.New(dbDir, nil, logging.NoLog{})
}

// readGenesis loads the genesis schema definition. An existing database
// ignores genesis, so a missing file only matters on first boot.
func readGenesis(genesisFile string) ([]byte, error) {
	if genesisFile == "" {
		return nil, nil
	}
	genesisBytes, err := os.ReadFile(genesisFile)
	if err != nil {
		return nil, fmt.Errorf("couldn't read genesis file: %w", err)
	}
	return genesisBytes, nil
}

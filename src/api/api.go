package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/0xSardius/dalaran/src/api/config"
	"github.com/0xSardius/dalaran/src/api/data"
	"github.com/0xSardius/dalaran/src/api/ledger"
	"github.com/0xSardius/dalaran/src/api/types"
	"github.com/0xSardius/dalaran/src/api/webserver"
)

var allModels = []interface{}{
	&types.Community{}, &types.Member{},
	&types.Proposal{}, &types.Vote{},
	&types.Comment{}, &types.Reaction{},
	&types.Transaction{},
}

func migrate(db *gorm.DB) {
	err := db.AutoMigrate(allModels...)

	if err == nil {
		return
	}

	log.Printf("auto-migrate failed (%v) - dropping & recreating schema", err)
	_ = db.Migrator().DropTable(
		"transactions", "reactions", "comments",
		"votes", "proposals", "members", "communities",
	)
	if err := db.AutoMigrate(allModels...); err != nil {
		log.Fatalf("migrate after drop: %v", err)
	}
}

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	migrate(db)

	rdb := data.MustRedis(cfg.RedisURL)
	lc := ledger.NewClient(cfg.RPCURL, cfg.SignerURL, cfg.ExplorerURL)

	router := webserver.New(cfg, db, rdb, lc)
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("Dalaran API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}

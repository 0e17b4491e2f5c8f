// Command reconcilerd runs one promotion-and-evaluation cycle of the
// reconciliation pipeline against a MongoDB document store (§5, §6).
//
// The teacher repo has no CLI of its own to imitate; the standard
// library flag package is used here rather than introducing a new
// dependency with no other foothold in the pack (justified in
// DESIGN.md).
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/files"
	"github.com/sidm01890/reconciler/internal/job"
	"github.com/sidm01890/reconciler/internal/logging"
	"github.com/sidm01890/reconciler/internal/merge"
	"github.com/sidm01890/reconciler/internal/promote"
	"github.com/sidm01890/reconciler/internal/store/cursorcache"
	"github.com/sidm01890/reconciler/internal/store/mongostore"
)

var mainLog = logging.For("cmd.reconcilerd")

// fixtureFile is the on-disk shape of the -config flag: the set of
// DataSources and FormulaDocuments to run this cycle against, in lieu
// of the out-of-scope HTTP/REST configuration surface (§1 Non-goals).
type fixtureFile struct {
	DataSources []domain.DataSource      `yaml:"data_sources"`
	Reports     []domain.FormulaDocument `yaml:"reports"`
}

func main() {
	mongoURI := flag.String("mongo-uri", os.Getenv("MONGODB_URI"), "MongoDB connection string")
	database := flag.String("database", "reconciler", "database name")
	configPath := flag.String("config", "", "path to a YAML fixture listing data sources and reports to run")
	cursorPath := flag.String("cursor-db", "", "path to a boltdb file for promotion resume cursors (optional)")
	yieldMS := flag.Int("yield-ms", 10, "cooperative yield interval between batches, in milliseconds")
	flag.Parse()

	if *mongoURI == "" {
		mainLog.Fatal("mongo-uri (or MONGODB_URI) is required")
	}
	if *configPath == "" {
		mainLog.Fatal("-config is required")
	}

	raw, err := os.ReadFile(*configPath)
	if err != nil {
		mainLog.WithError(err).Fatal("reading config file")
	}
	var fixture fixtureFile
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		mainLog.WithError(err).Fatal("parsing config file")
	}

	ctx := context.Background()
	st, err := mongostore.Connect(ctx, *mongoURI, *database)
	if err != nil {
		mainLog.WithError(err).Fatal("connecting to MongoDB")
	}
	defer st.Close(ctx)

	var cursor *cursorcache.Cache
	if *cursorPath != "" {
		cursor, err = cursorcache.Open(*cursorPath)
		if err != nil {
			mainLog.WithError(err).Warn("opening cursor cache; promoting without a resume cursor")
			cursor = nil
		} else {
			defer cursor.Close()
		}
	}

	yieldInterval := time.Duration(*yieldMS) * time.Millisecond
	orchestrator := &job.Orchestrator{
		Store:   st,
		Promote: promote.Config{YieldInterval: yieldInterval, Cursor: cursor},
		Merge:   merge.Config{YieldInterval: yieldInterval},
		Files:   &files.Tracker{Store: st},
	}

	promotionResult := orchestrator.RunPromotion(ctx, fixture.DataSources)
	mainLog.WithField("status", promotionResult.Status).Info(promotionResult.Message)

	evaluationResult := orchestrator.RunEvaluation(ctx, fixture.Reports)
	mainLog.WithField("status", evaluationResult.Status).Info(evaluationResult.Message)

	if promotionResult.Status >= 400 || evaluationResult.Status >= 400 {
		mainLog.WithError(errors.New("one or more runs reported failures")).Fatal("reconcilerd cycle finished with errors")
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"newsdal/internal/candidate"
	"newsdal/internal/config"
	"newsdal/internal/docstore"
	"newsdal/internal/objstore"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger *zap.Logger
	cfg    config.Config

	bucketFlag     string
	badgerPathFlag string
	redisAddrFlag  string
	tagFilterKey   string
	tagFilterValue string
)

var rootCmd = &cobra.Command{
	Use:   "newsdal",
	Short: "newsdal - inspect the news aggregation data layer",
}

var markerCmd = &cobra.Command{
	Use:   "marker [prefix]",
	Short: "Show the success marker for a key prefix",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, cleanup := buildStore()
		defer cleanup()

		ctx := context.Background()
		obj, err := objstore.GetSuccessMarker(ctx, st, bucketFlag, args[0])
		if err != nil {
			logger.Fatal("Failed to read success marker", zap.Error(err))
		}

		fmt.Printf("key: %s\n", obj.Key)
		fmt.Printf("completed: %s\n", string(obj.Body))
		for k, v := range obj.Metadata {
			fmt.Printf("metadata %s: %s\n", k, v)
		}
	},
}

var loadCmd = &cobra.Command{
	Use:   "load [topic-id] [date]",
	Short: "Load candidate articles for a topic and publishing date (YYYY-MM-DD)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		publishingDate, err := time.Parse("2006-01-02", args[1])
		if err != nil {
			logger.Fatal("Invalid publishing date", zap.Error(err))
		}

		st, cleanup := buildStore()
		defer cleanup()

		repo := candidate.NewCandidateArticles(candidate.ResultRefTypeS3, args[0], bucketFlag, st, logger)
		articles, err := repo.LoadArticles(context.Background(), publishingDate, tagFilterKey, tagFilterValue)
		if err != nil {
			logger.Fatal("Failed to load candidate articles", zap.Error(err))
		}

		for _, stored := range articles {
			fmt.Printf("%s\t%s\t%s\n", stored.Article.ArticleID, stored.Article.DtPublished, stored.Article.Title)
		}
		logger.Info("Loaded candidate articles", zap.Int("count", len(articles)))
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs [aggregator-id]",
	Short: "List recent aggregator runs",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddrFlag})
		defer rdb.Close()

		store := docstore.NewStore(rdb, logger)
		runs, err := store.ListRuns(context.Background(), args[0], 20)
		if err != nil {
			logger.Fatal("Failed to list runs", zap.Error(err))
		}

		for _, run := range runs {
			fmt.Printf("%s\t%s\t%s\t%s\n", run.RunID, run.TopicID, run.RunDatetime.Format(time.RFC3339), run.RunStatus)
		}
	},
}

// buildStore opens a local badger store when a path is set, and falls back
// to S3 otherwise.
func buildStore() (objstore.Store, func()) {
	if badgerPathFlag != "" {
		opts := badger.DefaultOptions(badgerPathFlag)
		opts.Logger = nil
		db, err := badger.Open(opts)
		if err != nil {
			logger.Fatal("Failed to open badger store", zap.Error(err))
		}
		return objstore.NewBadgerStore(db, logger), func() { db.Close() }
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Store.Region))
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Store.Endpoint != "" {
			o.BaseEndpoint = &cfg.Store.Endpoint
			o.UsePathStyle = true
		}
	})
	return objstore.NewS3Store(client, logger), func() {}
}

func main() {
	var err error
	logger, err = zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg = config.Load()

	rootCmd.PersistentFlags().StringVar(&bucketFlag, "bucket", cfg.Store.Bucket, "Candidate articles bucket")
	rootCmd.PersistentFlags().StringVar(&badgerPathFlag, "badger", cfg.Store.BadgerPath, "Path to a local BadgerDB store (uses S3 when empty)")
	rootCmd.PersistentFlags().StringVar(&redisAddrFlag, "redis", cfg.Redis.Addr, "Address of the document-store Redis server")
	loadCmd.Flags().StringVar(&tagFilterKey, "tag-key", "", "Only keep articles whose tag matches")
	loadCmd.Flags().StringVar(&tagFilterValue, "tag-value", "", "Value the tag filter must equal")

	rootCmd.AddCommand(markerCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(runsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// Command ragctl is a thin CLI over the engine: ingest a path or pasted
// text, then search or ask a question against whatever composer state
// results. Transport (HTTP/MCP) is out of scope; this exists to exercise
// the engine from a flag-parsed one-shot invocation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hybridrag/internal/config"
	"hybridrag/internal/convert"
	"hybridrag/internal/engine"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("RAGCTL_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	eng, err := engine.New(context.Background(), cfg, convert.ShellTool{})
	if err != nil {
		log.Fatal().Err(err).Msg("construct engine")
	}
	defer eng.Close()

	switch cmd := os.Args[1]; cmd {
	case "ingest":
		runIngest(eng, os.Args[2:])
	case "ingest-text":
		runIngestText(eng, os.Args[2:])
	case "search":
		runSearch(eng, os.Args[2:])
	case "query":
		runQuery(eng, os.Args[2:])
	case "status":
		runStatus(eng)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: ragctl <command> [args]

commands:
  ingest -path <dir-or-file> [-path ...]   ingest one or more filesystem paths
  ingest-text -content <text> [-source <name>]
  search -q <query> [-top-k 10]
  query -q <query>
  status`)
}

type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ",") }
func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func runIngest(eng *engine.Engine, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	var paths stringSlice
	fs.Var(&paths, "path", "path to ingest (repeatable)")
	fs.Parse(args)

	if len(paths) == 0 {
		log.Fatal().Msg("at least one -path is required")
	}

	result, err := eng.Ingest(context.Background(), engine.IngestRequest{
		DataSource: config.DataSourceFilesystem,
		Paths:      paths,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("ingest")
	}
	waitAndPrintJob(eng, result.JobID)
}

func runIngestText(eng *engine.Engine, args []string) {
	fs := flag.NewFlagSet("ingest-text", flag.ExitOnError)
	content := fs.String("content", "", "text content to ingest")
	sourceName := fs.String("source", "", "logical source name")
	fs.Parse(args)

	if *content == "" {
		log.Fatal().Msg("-content is required")
	}

	result, err := eng.IngestText(context.Background(), *content, *sourceName)
	if err != nil {
		log.Fatal().Err(err).Msg("ingest-text")
	}
	waitAndPrintJob(eng, result.JobID)
}

func waitAndPrintJob(eng *engine.Engine, jobID string) {
	fmt.Printf("job %s started\n", jobID)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	for job := range eng.ProcessingEvents(ctx, jobID) {
		fmt.Printf("[%s] %s (%d/%d) %s\n", job.Status, job.CurrentFile, job.FilesCompleted, job.TotalFiles, job.Message)
	}
}

func runSearch(eng *engine.Engine, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	q := fs.String("q", "", "search query")
	topK := fs.Int("top-k", 10, "number of results")
	fs.Parse(args)

	if *q == "" {
		log.Fatal().Msg("-q is required")
	}

	results, err := eng.Search(context.Background(), *q, *topK)
	if err != nil {
		log.Fatal().Err(err).Msg("search")
	}
	for _, r := range results {
		fmt.Printf("[%d] (%.4f, %s) %s: %s\n", r.Rank, r.Score, r.Source, r.FileName, r.Content)
	}
}

func runQuery(eng *engine.Engine, args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	q := fs.String("q", "", "question")
	fs.Parse(args)

	if *q == "" {
		log.Fatal().Msg("-q is required")
	}

	answer, err := eng.Query(context.Background(), *q)
	if err != nil {
		log.Fatal().Err(err).Msg("query")
	}
	fmt.Println(answer)
}

func runStatus(eng *engine.Engine) {
	status := eng.Status()
	fmt.Printf("vector=%v graph=%v retriever=%v\n", status.HasVector, status.HasGraph, status.HasRetriever)
	fmt.Printf("vector_db=%s graph_db=%s search_db=%s\n", status.Config.VectorDB, status.Config.GraphDB, status.Config.SearchDB)
}

// Command ingest-hints loads MEV-share-style event hints from a parquet
// dump into the local hint store, adapted from cmd/ingest-mempool's
// parquet-go batch-read loop.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/quaydex/backrun-engine/internal/decode"
	"github.com/quaydex/backrun-engine/internal/hintstore"
)

// HintRow matches one log entry from a relay's event-hint export: address
// and topic0 are the only fields an MEV-share hint ever discloses.
type HintRow struct {
	TxHash      string
	BlockNumber int64
	LogIndex    int64
	Address     string
	Topic0      string
}

func main() {
	_ = godotenv.Load("../../.env")

	parquetFile := flag.String("file", "", "Path to parquet file of event hints")
	dbPath := flag.String("db", "data/hints.db", "Path to hint store SQLite database")
	flag.Parse()

	if *parquetFile == "" {
		log.Fatal("Usage: --file <parquet_file>")
	}

	store, err := hintstore.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open hint store: %v", err)
	}
	defer store.Close()

	fr, err := local.NewLocalFileReader(*parquetFile)
	if err != nil {
		log.Fatalf("Failed to open parquet file: %v", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(HintRow), 4)
	if err != nil {
		log.Fatalf("Failed to create parquet reader: %v", err)
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	fmt.Printf("ingesting %d event-hint rows from %s\n", numRows, *parquetFile)

	batchSize := 1000
	byTx := make(map[common.Hash][]decode.HintLog)
	blockByTx := make(map[common.Hash]uint64)
	totalIngested := 0
	startTime := time.Now()

	flush := func() error {
		for txHash, logs := range byTx {
			if err := store.PutHints(txHash, blockByTx[txHash], logs); err != nil {
				return err
			}
		}
		byTx = make(map[common.Hash][]decode.HintLog)
		blockByTx = make(map[common.Hash]uint64)
		return nil
	}

	for i := 0; i < numRows; i += batchSize {
		toRead := batchSize
		if i+toRead > numRows {
			toRead = numRows - i
		}

		rawRows, err := pr.ReadByNumber(toRead)
		if err != nil {
			log.Printf("warning: failed to read batch at %d: %v", i, err)
			break
		}
		if len(rawRows) == 0 {
			break
		}

		for _, rawRow := range rawRows {
			row, ok := rawRow.(HintRow)
			if !ok {
				rowPtr, ok := rawRow.(*HintRow)
				if !ok {
					continue
				}
				row = *rowPtr
			}

			txHash := common.HexToHash(row.TxHash)
			byTx[txHash] = append(byTx[txHash], decode.HintLog{
				Address: common.HexToAddress(row.Address),
				Topics:  []common.Hash{common.HexToHash(row.Topic0)},
			})
			blockByTx[txHash] = uint64(row.BlockNumber)
			totalIngested++
		}

		if err := flush(); err != nil {
			log.Printf("warning: failed to flush batch: %v", err)
		}

		if totalIngested%10000 < batchSize {
			elapsed := time.Since(startTime)
			rate := float64(totalIngested) / elapsed.Seconds()
			fmt.Printf("  ingested %d hint rows (%.0f rows/s)\n", totalIngested, rate)
		}
	}

	elapsed := time.Since(startTime)
	fmt.Printf("done: %d hint rows in %s\n", totalIngested, elapsed)
}

package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/datasource/historical"
	"github.com/peter-kozarec/sandbox/pkg/exchange"
	"github.com/peter-kozarec/sandbox/pkg/logging"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

const timeLayout = "2006-01-02 15:04:05.999999999Z07:00"

// dumpIt appends the quotes of one csv file (ts,bid,ask,bid_size,ask_size with
// a header row) to w.
func dumpIt(ticker, csvPath string, w *historical.Writer) error {
	csvFile, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer func(csvFile *os.File) {
		_ = csvFile.Close()
	}(csvFile)

	reader := csv.NewReader(csvFile)
	reader.FieldsPerRecord = 5

	if _, err := reader.Read(); err != nil {
		return fmt.Errorf("%s: reading header: %w", csvPath, err)
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s:%d: %w", csvPath, line, err)
		}

		obs, err := parseRecord(ticker, record)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", csvPath, line, err)
		}
		if err := w.Write(obs); err != nil {
			return fmt.Errorf("%s:%d: %w", csvPath, line, err)
		}
	}
}

func parseRecord(ticker string, record []string) (common.BidAsk, error) {
	ts, err := time.Parse(timeLayout, record[0])
	if err != nil {
		return common.BidAsk{}, err
	}

	var values [4]fixed.Point
	for i := range values {
		if values[i], err = fixed.Parse(record[i+1]); err != nil {
			return common.BidAsk{}, err
		}
	}

	return common.BidAsk{
		Ticker:    ticker,
		TimeStamp: ts,
		Bid:       values[0],
		Ask:       values[1],
		BidSize:   values[2],
		AskSize:   values[3],
	}, nil
}

func dumpAll(logger *zap.Logger, ticker, dir string, files []string) error {
	tape := historical.NewTape(logger, dir)
	path := tape.Path(ticker)

	w, err := historical.Create(path)
	if err != nil {
		return err
	}

	for _, file := range files {
		if err := dumpIt(ticker, file, w); err != nil {
			_ = w.Close()
			_ = os.Remove(path)
			return err
		}
		logger.Info("dump finished", zap.String("ticker", ticker), zap.String("file", file), zap.Int64("records", w.Count()))
	}
	return w.Close()
}

func main() {
	ticker := flag.String("ticker", "", "ticker the csv files belong to")
	dir := flag.String("dir", ".", "output directory of the historical tape")
	flag.Parse()

	logger := logging.Must("info", true)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	key := exchange.Key(*ticker)
	if key == "" || flag.NArg() == 0 {
		logger.Error("usage: dumpit -ticker AAPL [-dir out] quotes_1.csv quotes_2.csv ...")
		os.Exit(2)
	}

	if err := dumpAll(logger, key, filepath.Clean(*dir), flag.Args()); err != nil {
		logger.Error("failed to dump", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("done", zap.String("ticker", key))
}

package rdb

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/eak1mov/go-rasterchunk/raster"
)

// Writer implements raster.Writer interface for rdb format.
//
// Metadata is committed by NewWriter. Blocks are written in a single
// transaction which is committed by Finalize; closing without Finalize
// rolls the blocks back.
type Writer struct {
	db         *sql.DB
	tx         *sql.Tx
	selectStmt *sql.Stmt
	upsertStmt *sql.Stmt
	codec      *codec
	meta       raster.Meta
	layout     layout
	logger     *slog.Logger
	committed  bool
}

type writerConfig struct {
	BlockSize   int
	Compression Compression
	Logger      *slog.Logger
}

type WriterOption func(*writerConfig)

func WithBlockSize(blockSize int) WriterOption {
	return func(c *writerConfig) { c.BlockSize = blockSize }
}

func WithCompression(compression Compression) WriterOption {
	return func(c *writerConfig) { c.Compression = compression }
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// NewWriter creates a new rdb database at filePath. It fails with
// raster.ErrExists if the file already exists.
func NewWriter(filePath string, meta raster.Meta, opts ...WriterOption) (*Writer, error) {
	config := writerConfig{
		BlockSize:   DefaultBlockSize,
		Compression: CompressionZstd,
		Logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}
	meta = meta.Float32()
	if config.BlockSize <= 0 {
		return nil, fmt.Errorf("rdb: invalid block size %d", config.BlockSize)
	}

	if _, err := os.Stat(filePath); err == nil {
		return nil, fmt.Errorf("%w: %s", raster.ErrExists, filePath)
	}

	codec, err := newCodec(config.Compression)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		codec.Close()
		return nil, err
	}
	w := &Writer{
		db:     db,
		codec:  codec,
		meta:   meta,
		layout: layout{rows: meta.Rows, cols: meta.Cols, blockSize: config.BlockSize},
		logger: config.Logger,
	}
	if err := w.init(encodeMetadata(meta, config.BlockSize, config.Compression)); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	return w, nil
}

func (w *Writer) init(metadata map[string]string) (err error) {
	_, err = w.db.Exec(`
		CREATE TABLE metadata (name TEXT PRIMARY KEY, value TEXT);
		CREATE TABLE blocks (
			block_row INTEGER,
			block_col INTEGER,
			block_data BLOB,
			PRIMARY KEY (block_row, block_col)
		);
	`)
	if err != nil {
		return err
	}

	for k, v := range metadata {
		_, err = w.db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v)
		if err != nil {
			return err
		}
	}

	if w.tx, err = w.db.Begin(); err != nil {
		return err
	}
	w.selectStmt, err = w.tx.Prepare("SELECT block_data FROM blocks WHERE block_row = ? AND block_col = ?")
	if err != nil {
		return err
	}
	w.upsertStmt, err = w.tx.Prepare("INSERT OR REPLACE INTO blocks (block_row, block_col, block_data) VALUES (?, ?, ?)")
	return err
}

func (w *Writer) Meta() raster.Meta { return w.meta }

// WriteWindow merges g into every block it intersects.
func (w *Writer) WriteWindow(g *grid.Grid, xOff, yOff int) error {
	if err := w.meta.CheckWindow(xOff, yOff, g.Cols, g.Rows); err != nil {
		return err
	}
	bs := w.layout.blockSize
	return w.layout.visitBlocks(xOff, yOff, g.Cols, g.Rows, func(br, bc, x0, y0, x1, y1 int) error {
		block, err := w.loadBlock(br, bc)
		if err != nil {
			return err
		}
		block.Paste(g.Window(y0-yOff, x0-xOff, y1-y0, x1-x0), y0-br*bs, x0-bc*bs)

		data, err := w.codec.Compress(encodeBlock(block))
		if err != nil {
			return err
		}
		_, err = w.upsertStmt.Exec(br, bc, data)
		return err
	})
}

func (w *Writer) loadBlock(br, bc int) (*grid.Grid, error) {
	rows, cols := w.layout.blockShape(br, bc)

	var data []byte
	err := w.selectStmt.QueryRow(br, bc).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		fill := 0.0
		if w.meta.HasNoData {
			fill = w.meta.NoData
		}
		return grid.Filled(rows, cols, fill), nil
	}
	if err != nil {
		return nil, err
	}

	data, err = w.codec.Decompress(data)
	if err != nil {
		return nil, err
	}
	return decodeBlock(data, rows, cols)
}

func (w *Writer) Finalize() error {
	w.logger.Debug("rasterchunk: committing blocks")
	if err := w.tx.Commit(); err != nil {
		return err
	}
	w.committed = true
	w.logger.Debug("rasterchunk: done!")
	return nil
}

func (w *Writer) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{w.selectStmt, w.upsertStmt} {
		if stmt != nil {
			errs = append(errs, stmt.Close())
		}
	}
	if w.tx != nil && !w.committed {
		errs = append(errs, w.tx.Rollback())
	}
	errs = append(errs, w.db.Close())
	w.codec.Close()
	return errors.Join(errs...)
}

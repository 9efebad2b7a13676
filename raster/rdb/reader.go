package rdb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/eak1mov/go-rasterchunk/raster"
)

// Reader implements raster.Reader interface for rdb format.
type Reader struct {
	db     *sql.DB
	stmt   *sql.Stmt
	codec  *codec
	meta   raster.Meta
	layout layout
}

// NewReader opens the rdb database at filePath read-only.
//
// The returned Reader must be closed after use to release database resources.
func NewReader(filePath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", filePath))
	if err != nil {
		return nil, err
	}

	r := &Reader{db: db}
	if err := r.init(); err != nil {
		return nil, errors.Join(err, r.Close())
	}
	return r, nil
}

func (r *Reader) init() error {
	metadata, err := r.ReadMetadata()
	if err != nil {
		return err
	}
	meta, blockSize, compression, err := decodeMetadata(metadata)
	if err != nil {
		return err
	}
	r.meta = meta
	r.layout = layout{rows: meta.Rows, cols: meta.Cols, blockSize: blockSize}

	if r.codec, err = newCodec(compression); err != nil {
		return err
	}
	r.stmt, err = r.db.Prepare("SELECT block_data FROM blocks WHERE block_row = ? AND block_col = ?")
	return err
}

func (r *Reader) Close() error {
	var errs []error
	if r.stmt != nil {
		errs = append(errs, r.stmt.Close())
	}
	if r.codec != nil {
		r.codec.Close()
	}
	errs = append(errs, r.db.Close())
	return errors.Join(errs...)
}

func (r *Reader) ReadMetadata() (map[string]string, error) {
	metadata := make(map[string]string)

	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		metadata[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return metadata, nil
}

func (r *Reader) Meta() raster.Meta { return r.meta }

func (r *Reader) ReadWindow(xOff, yOff, width, height int) (*grid.Grid, error) {
	if err := r.meta.CheckWindow(xOff, yOff, width, height); err != nil {
		return nil, err
	}

	fill := 0.0
	if r.meta.HasNoData {
		fill = r.meta.NoData
	}
	g := grid.Filled(height, width, fill)

	bs := r.layout.blockSize
	err := r.layout.visitBlocks(xOff, yOff, width, height, func(br, bc, x0, y0, x1, y1 int) error {
		var data []byte
		if err := r.stmt.QueryRow(br, bc).Scan(&data); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}

		data, err := r.codec.Decompress(data)
		if err != nil {
			return err
		}
		rows, cols := r.layout.blockShape(br, bc)
		block, err := decodeBlock(data, rows, cols)
		if err != nil {
			return err
		}
		g.Paste(block.Window(y0-br*bs, x0-bc*bs, y1-y0, x1-x0), y0-yOff, x0-xOff)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Package transfer streams a local file to the chunk endpoint.
//
// Chunks are sent strictly in order. The first chunk carries the original
// file name; every following chunk carries the continuation id returned by
// the previous response. Any failed chunk aborts the whole transfer, so a
// later attempt always starts again from byte zero.
package transfer

import (
	"context"
	"errors"
	"io"
	"path/filepath"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/dropsync/filestore"
	"github.com/rise-and-shine/dropsync/mediative"
	"github.com/rise-and-shine/dropsync/observability/logger"
	"github.com/rise-and-shine/dropsync/observability/stats"
)

// ChunkUploader sends one chunk.
type ChunkUploader interface {
	UploadChunk(ctx context.Context, token string, chunk mediative.Chunk) (mediative.ChunkResponse, error)
}

// FileReader gives sequential read access to local files.
type FileReader interface {
	Stat(path string) (filestore.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
}

// Result summarizes a finished transfer.
type Result struct {
	Chunks int
	Bytes  int64
	// ContinuationID is the last continuation id seen.
	ContinuationID string
	// Final is the response to the last chunk. Zero when the file was empty.
	Final mediative.ChunkResponse
}

type cursor struct {
	offset         int64
	seq            int
	size           int64
	continuationID string
}

// Engine uploads files chunk by chunk.
type Engine struct {
	api       ChunkUploader
	fs        FileReader
	chunkSize int
	logger    logger.Logger
}

// NewEngine creates an Engine.
func NewEngine(api ChunkUploader, fs FileReader, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Engine{
		api:       api,
		fs:        fs,
		chunkSize: o.chunkSize,
		logger:    logger.Named("transfer"),
	}
}

// Upload sends path with token. ctx is checked before every chunk, so a
// cancelled job stops at the next chunk boundary.
func (e *Engine) Upload(ctx context.Context, token, path string) (Result, error) {
	info, err := e.fs.Stat(path)
	if err != nil {
		return Result{}, errx.Wrap(err)
	}

	f, err := e.fs.Open(path)
	if err != nil {
		return Result{}, errx.Wrap(err)
	}
	defer f.Close()

	var (
		cur  = cursor{size: info.Size}
		res  Result
		buf  = make([]byte, e.chunkSize)
		base = filepath.Base(path)
		log  = e.logger.WithContext(ctx)
	)

	for {
		if err = ctx.Err(); err != nil {
			return res, errx.Wrap(err, errx.WithDetails(errx.D{"offset": cur.offset, "chunk": cur.seq}))
		}

		n, readErr := io.ReadFull(f, buf)
		if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
			return res, e.chunkErr("cannot read chunk", cur, readErr)
		}
		if n == 0 {
			break
		}

		chunk := mediative.Chunk{
			Filename:       base,
			ContinuationID: cur.continuationID,
			Offset:         cur.offset,
			Size:           cur.size,
			Data:           buf[:n],
		}
		resp, upErr := e.api.UploadChunk(ctx, token, chunk)
		if upErr != nil {
			return res, e.chunkErr("chunk was not accepted", cur, upErr)
		}

		if resp.ID != "" {
			cur.continuationID = resp.ID
		}
		cur.offset += int64(n)
		cur.seq++

		res.Chunks = cur.seq
		res.Bytes = cur.offset
		res.ContinuationID = cur.continuationID
		res.Final = resp

		stats.Inc(stats.ChunksSent)
		stats.Add(stats.BytesSent, int64(n))
		log.With("range", chunk.ContentRange(), "chunk", cur.seq).Debug("[transfer]: chunk sent")
	}

	log.With("chunks", res.Chunks, "bytes", res.Bytes).Info("[transfer]: file transferred")
	return res, nil
}

func (e *Engine) chunkErr(msg string, cur cursor, cause error) error {
	details := errx.D{
		"chunk":  cur.seq,
		"offset": cur.offset,
		"size":   cur.size,
		"cause":  cause.Error(),
	}
	if ex := errx.AsErrorX(cause); ex != nil {
		for k, v := range ex.Details() {
			details[k] = v
		}
	}
	return errx.New("[transfer]: "+msg,
		errx.WithCode(CodeChunkFailed),
		errx.WithDetails(details),
	)
}

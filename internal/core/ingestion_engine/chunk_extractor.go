package ingestion_engine

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// streamChunk groups incoming fragments into token-bounded chunks with optional overlap.
//
// frags:          upstream fragments channel.
// targetTokens:   approximate tokens per chunk.
// overlapTokens:  tokens retained from the end of the previous chunk as seed of the next.
func (i *PaperIngestor) streamChunk(
	ctx context.Context,
	g *errgroup.Group,
	frags <-chan string,
	targetTokens int,
	overlapTokens int,
) <-chan chunk {
	out := make(chan chunk, 8)

	g.Go(func() error {
		defer close(out)

		var (
			buf     []string
			tokSum  int
			pos     int
			pending bool // buf holds fragments not yet emitted
		)

		flush := func() error {
			if !pending {
				return nil
			}
			ch := chunk{Pos: pos, Text: strings.Join(buf, "\n"), TokenCnt: tokSum}
			pos++
			pending = false

			select {
			case out <- ch:
			case <-ctx.Done():
				return ctx.Err()
			}

			if overlapTokens <= 0 {
				buf = buf[:0]
				tokSum = 0
				return nil
			}
			// keep a tail whose token sum is about overlapTokens
			var keep []string
			remain := overlapTokens
			for j := len(buf) - 1; j >= 0 && remain > 0; j-- {
				keep = append([]string{buf[j]}, keep...)
				remain -= approxTokens(buf[j])
			}
			buf = keep
			tokSum = 0
			for _, s := range buf {
				tokSum += approxTokens(s)
			}
			return nil
		}

		for frag := range frags {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf = append(buf, frag)
			tokSum += approxTokens(frag)
			pending = true

			if tokSum >= targetTokens {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})

	return out
}

// approxTokens is a cheap token estimator (~4 chars per token).
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}

// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package pgstore is a Postgres-backed implementation of the C1
// storage adapter contract, for deployments that want the quad store
// durable rather than in-process (internal/storage/memstore is the
// in-memory counterpart used by tests). It keeps one quads table with
// a composite primary key and leans on pgx's connection pool the way
// the teacher's target-database path does.
package pgstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sageql/sageql/internal/engineerr"
	"github.com/sageql/sageql/internal/snapshot"
	"github.com/sageql/sageql/internal/term"
	"github.com/sageql/sageql/internal/types"
)

// Schema is the DDL a deployment must apply before pointing a Store at
// a database; main.go does not apply it automatically, mirroring the
// teacher's preference for operator-driven migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS sageql_quads (
	graph     TEXT NOT NULL,
	subject   TEXT NOT NULL,
	predicate TEXT NOT NULL,
	object    TEXT NOT NULL,
	PRIMARY KEY (graph, subject, predicate, object)
);
`

// Store is a Postgres-backed C1 adapter. One Store serves an entire
// deployment; transactions are scoped per named graph, matching
// spec.md §5's "each task owns its own cursor" plus §4.8's per-graph
// commit/abort.
type Store struct {
	pool   *pgxpool.Pool
	graphs map[types.Term]struct{}

	mu  sync.Mutex
	txs map[types.Term]pgx.Tx
}

var _ types.StorageAdapter = (*Store)(nil)

// New constructs a Store over pool, with the given named graphs
// declared as known (spec.md §4.2's "unknown named graphs scan as
// empty" is judged against this set, not against table contents).
func New(pool *pgxpool.Pool, graphs ...types.Term) *Store {
	g := make(map[types.Term]struct{}, len(graphs))
	for _, name := range graphs {
		g[name] = struct{}{}
	}
	return &Store{pool: pool, graphs: g, txs: make(map[types.Term]pgx.Tx)}
}

// GraphExists implements types.StorageAdapter.
func (s *Store) GraphExists(_ context.Context, name types.Term) bool {
	_, ok := s.graphs[name]
	return ok
}

// Search implements types.StorageAdapter. It runs one query per call
// over every position pattern fixes, sorts for a stable bookmark
// order, and hands back the slice remaining after lastRead — the same
// shape memstore uses, traded for durability rather than throughput.
func (s *Store) Search(ctx context.Context, pattern types.Triple, lastRead string, _ snapshot.Time) (types.Cursor, types.Cardinality, error) {
	if !pattern.Graph.IsVariable() && !s.GraphExists(ctx, pattern.Graph) {
		return &sliceCursor{}, 0, nil
	}

	where := []string{}
	args := []interface{}{}
	add := func(col string, t types.Term) {
		if t.IsVariable() {
			return
		}
		args = append(args, string(t))
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("graph", pattern.Graph)
	add("subject", pattern.Subject)
	add("predicate", pattern.Predicate)
	add("object", pattern.Object)

	query := "SELECT graph, subject, predicate, object FROM sageql_quads"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying quads")
	}
	defer rows.Close()

	var matches []types.Triple
	for rows.Next() {
		var graph, subject, predicate, object string
		if err := rows.Scan(&graph, &subject, &predicate, &object); err != nil {
			return nil, 0, errors.Wrap(err, "scanning quad row")
		}
		if raw, ok := firstMalformedTerm(graph, subject, predicate, object); !ok {
			encErr := engineerr.NewTermEncodingError(raw, errors.New("does not parse as N3 term text"))
			log.WithError(encErr).WithField("graph", graph).Warn("skipping quad with malformed term")
			continue
		}
		matches = append(matches, types.Triple{
			Graph: types.Term(graph), Subject: types.Term(subject),
			Predicate: types.Term(predicate), Object: types.Term(object),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "reading quad rows")
	}
	sort.Slice(matches, func(i, j int) bool { return quadKey(matches[i]) < quadKey(matches[j]) })

	start := 0
	if lastRead != "" {
		if n, convErr := strconv.Atoi(lastRead); convErr == nil {
			start = n + 1
		}
	}
	if start > len(matches) {
		start = len(matches)
	}
	return &sliceCursor{quads: matches[start:], offset: start}, types.Cardinality(len(matches)), nil
}

// firstMalformedTerm reports the first of the four column values that
// does not parse as well-formed N3 term text, if any (spec.md §7,
// TermEncodingError). A quoted literal must decompose via
// internal/term; IRIs, blank nodes, and variables carry no further
// syntax this layer enforces.
func firstMalformedTerm(cols ...string) (raw string, ok bool) {
	for _, c := range cols {
		t := types.Term(c)
		if term.Classify(t) != term.KindLiteral {
			continue
		}
		if _, parsed := term.ParseLiteral(t); !parsed {
			return c, false
		}
	}
	return "", true
}

func quadKey(t types.Triple) string {
	return string(t.Graph) + "|" + string(t.Subject) + "|" + string(t.Predicate) + "|" + string(t.Object)
}

// txFor returns the in-flight transaction for graph, opening one on
// the pool if this is the first write since the last Commit/Abort.
func (s *Store) txFor(ctx context.Context, graph types.Term) (pgx.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx, ok := s.txs[graph]; ok {
		return tx, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "opening graph transaction")
	}
	s.txs[graph] = tx
	return tx, nil
}

// InsertQuad implements types.StorageAdapter.
func (s *Store) InsertQuad(ctx context.Context, graph types.Term, t types.Triple) error {
	tx, err := s.txFor(ctx, graph)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO sageql_quads (graph, subject, predicate, object)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`,
		string(graph), string(t.Subject), string(t.Predicate), string(t.Object))
	if err != nil {
		return errors.Wrap(err, "inserting quad")
	}
	return nil
}

// DeleteQuad implements types.StorageAdapter.
func (s *Store) DeleteQuad(ctx context.Context, graph types.Term, t types.Triple) error {
	tx, err := s.txFor(ctx, graph)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		DELETE FROM sageql_quads
		WHERE graph = $1 AND subject = $2 AND predicate = $3 AND object = $4`,
		string(graph), string(t.Subject), string(t.Predicate), string(t.Object))
	if err != nil {
		return errors.Wrap(err, "deleting quad")
	}
	return nil
}

// Commit implements types.StorageAdapter.
func (s *Store) Commit(ctx context.Context, graph types.Term) error {
	s.mu.Lock()
	tx, ok := s.txs[graph]
	delete(s.txs, graph)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "committing graph transaction")
	}
	return nil
}

// Abort implements types.StorageAdapter.
func (s *Store) Abort(ctx context.Context, graph types.Term) error {
	s.mu.Lock()
	tx, ok := s.txs[graph]
	delete(s.txs, graph)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		return errors.Wrap(err, "aborting graph transaction")
	}
	return nil
}

type sliceCursor struct {
	quads  []types.Triple
	offset int
	pos    int
}

var _ types.Cursor = (*sliceCursor)(nil)

func (c *sliceCursor) HasNext(context.Context) bool { return c.pos < len(c.quads) }

func (c *sliceCursor) Next(context.Context) (types.Triple, error) {
	t := c.quads[c.pos]
	c.pos++
	return t, nil
}

func (c *sliceCursor) LastRead() string {
	if c.pos == 0 {
		return ""
	}
	return strconv.Itoa(c.offset + c.pos - 1)
}

/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package audit persists a durable log of connection and forward-entry
// lifecycle events to SQLite via GORM, for operators who need a queryable
// history beyond the in-memory registry and forward table. Optional and
// off by default; the driver never calls into this package, so callers
// record events themselves with Recorder.Record.
package audit

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Kind tags which lifecycle transition an Event records.
type Kind string

const (
	ConnectionAccepted Kind = "connection_accepted"
	ConnectionDrained  Kind = "connection_drained"
	ForwardCreated     Kind = "forward_created"
	ForwardEvicted     Kind = "forward_evicted"
)

// Event is one row in the audit log.
type Event struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	Kind      Kind   `gorm:"index"`
	Remote    string `gorm:"index"`
	Detail    string
}

// Recorder writes Events to a SQLite database.
type Recorder struct {
	db *gorm.DB
}

// Open creates (or reuses) the SQLite database at path and ensures the
// Event table exists.
func Open(path string) (*Recorder, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, err
	}
	return &Recorder{db: db}, nil
}

// Record appends one lifecycle event. Errors are returned rather than
// swallowed; callers that treat auditing as best-effort should log and
// continue rather than fail the operation being audited.
func (r *Recorder) Record(kind Kind, remote, detail string) error {
	return r.db.Create(&Event{Kind: kind, Remote: remote, Detail: detail}).Error
}

// Recent returns the last n events ordered newest first, mainly for
// operator tooling and tests.
func (r *Recorder) Recent(n int) ([]Event, error) {
	var events []Event
	err := r.db.Order("id desc").Limit(n).Find(&events).Error
	return events, err
}

// Close releases the underlying database connection.
func (r *Recorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

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

// Package config loads the driver's tunables (queue cap, recv/send
// budgets, forward idle timeout, bind address) from a viper-backed file,
// with fsnotify-driven hot reload of the values safe to change at
// runtime, and a go-homedir default config path when none is given.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Tunables is the subset of endpoint configuration an operator may want
// to change without a redeploy.
type Tunables struct {
	BindAddress        string
	MaxQueueBytes      int
	RecvBudget         time.Duration
	SendBudget         time.Duration
	ForwardIdleTimeout time.Duration
}

func defaults() Tunables {
	return Tunables{
		BindAddress:        ":4433",
		MaxQueueBytes:      1 << 20,
		RecvBudget:         500 * time.Microsecond,
		SendBudget:         500 * time.Microsecond,
		ForwardIdleTimeout: 30 * time.Second,
	}
}

// DefaultPath resolves ~/.quicio.yaml, the path used when no explicit
// config file is given.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".quicio.yaml"), nil
}

// Loader watches a config file and exposes the latest Tunables parsed
// from it, safe for concurrent reads while a reload is in flight.
type Loader struct {
	mu sync.RWMutex
	v  *viper.Viper
	t  Tunables

	onChange func(Tunables)
}

// Load reads path (falling back to built-in defaults for anything the
// file does not set) and starts watching it for changes.
func Load(path string, onChange func(Tunables)) (*Loader, error) {
	v := viper.New()
	v.SetConfigFile(path)

	d := defaults()
	v.SetDefault("bind_address", d.BindAddress)
	v.SetDefault("max_queue_bytes", d.MaxQueueBytes)
	v.SetDefault("recv_budget", d.RecvBudget.String())
	v.SetDefault("send_budget", d.SendBudget.String())
	v.SetDefault("forward_idle_timeout", d.ForwardIdleTimeout.String())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	l := &Loader{v: v, onChange: onChange}
	if err := l.reparse(); err != nil {
		return nil, err
	}

	v.WatchConfig()
	v.OnConfigChange(func(fsnotify.Event) {
		if err := l.reparse(); err == nil && l.onChange != nil {
			l.onChange(l.Get())
		}
	})

	return l, nil
}

func (l *Loader) reparse() error {
	recv, err := time.ParseDuration(l.v.GetString("recv_budget"))
	if err != nil {
		return fmt.Errorf("config: recv_budget: %w", err)
	}
	send, err := time.ParseDuration(l.v.GetString("send_budget"))
	if err != nil {
		return fmt.Errorf("config: send_budget: %w", err)
	}
	idle, err := time.ParseDuration(l.v.GetString("forward_idle_timeout"))
	if err != nil {
		return fmt.Errorf("config: forward_idle_timeout: %w", err)
	}

	t := Tunables{
		BindAddress:        l.v.GetString("bind_address"),
		MaxQueueBytes:      l.v.GetInt("max_queue_bytes"),
		RecvBudget:         recv,
		SendBudget:         send,
		ForwardIdleTimeout: idle,
	}

	l.mu.Lock()
	l.t = t
	l.mu.Unlock()
	return nil
}

// Get returns the most recently parsed Tunables.
func (l *Loader) Get() Tunables {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.t
}

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

// Package sizeunit gives byte counts like queue caps and payload limits a
// human-readable spelling instead of bare integer literals.
package sizeunit

import "fmt"

// Size is a count of bytes.
type Size int64

const (
	SizeNul  Size = 0
	SizeByte Size = 1
	SizeKilo      = 1024 * SizeByte
	SizeMega      = 1024 * SizeKilo
	SizeGiga      = 1024 * SizeMega
)

// Int64 returns the size as a plain byte count.
func (s Size) Int64() int64 {
	return int64(s)
}

// Int returns the size as a plain byte count, for code that indexes slices.
func (s Size) Int() int {
	return int(s)
}

func (s Size) String() string {
	switch {
	case s >= SizeGiga:
		return fmt.Sprintf("%.2fGiB", float64(s)/float64(SizeGiga))
	case s >= SizeMega:
		return fmt.Sprintf("%.2fMiB", float64(s)/float64(SizeMega))
	case s >= SizeKilo:
		return fmt.Sprintf("%.2fKiB", float64(s)/float64(SizeKilo))
	default:
		return fmt.Sprintf("%dB", int64(s))
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package delta

import (
	"bytes"
	"context"
)

// suffixArray sorts the suffixes of data with Larsson and Sadakane's
// qsufsort. The result has len(data)+1 entries: position len(data) is
// the empty suffix, which always sorts first. The context is checked
// once per doubling pass.
func suffixArray(ctx context.Context, data []byte) ([]int, error) {
	size := len(data)
	index := make([]int, size+1)
	rank := make([]int, size+1)

	var buckets [256]int
	for _, value := range data {
		buckets[value]++
	}
	for i := 1; i < 256; i++ {
		buckets[i] += buckets[i-1]
	}
	copy(buckets[1:], buckets[:255])
	buckets[0] = 0

	for i, value := range data {
		buckets[value]++
		index[buckets[value]] = i
	}
	index[0] = size
	for i, value := range data {
		rank[i] = buckets[value]
	}
	rank[size] = 0
	for i := 1; i < 256; i++ {
		if buckets[i] == buckets[i-1]+1 {
			index[buckets[i]] = -1
		}
	}
	index[0] = -1

	// A negative entry -n marks a run of n suffixes whose order is
	// final. Sorting is done when the whole array is one such run.
	for h := 1; index[0] != -(size + 1); h += h {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sorted := 0
		i := 0
		for i < size+1 {
			if index[i] < 0 {
				sorted -= index[i]
				i -= index[i]
				continue
			}
			if sorted != 0 {
				index[i-sorted] = -sorted
			}
			length := rank[index[i]] + 1 - i
			splitGroup(index, rank, i, length, h)
			i += length
			sorted = 0
		}
		if sorted != 0 {
			index[i-sorted] = -sorted
		}
	}

	for i := 0; i < size+1; i++ {
		index[rank[i]] = i
	}
	return index, nil
}

// splitGroup refines the group index[start:start+length] by the rank
// of the suffix h positions further on (ternary quicksort, insertion
// sort for small groups), updating rank for the new subgroups.
func splitGroup(index, rank []int, start, length, h int) {
	if length < 16 {
		for k := start; k < start+length; {
			equal := 1
			pivot := rank[index[k]+h]
			for i := 1; k+i < start+length; i++ {
				key := rank[index[k+i]+h]
				if key < pivot {
					pivot = key
					equal = 0
				}
				if key == pivot {
					index[k+equal], index[k+i] = index[k+i], index[k+equal]
					equal++
				}
			}
			for i := 0; i < equal; i++ {
				rank[index[k+i]] = k + equal - 1
			}
			if equal == 1 {
				index[k] = -1
			}
			k += equal
		}
		return
	}

	pivot := rank[index[start+length/2]+h]
	less, same := 0, 0
	for i := start; i < start+length; i++ {
		key := rank[index[i]+h]
		if key < pivot {
			less++
		}
		if key == pivot {
			same++
		}
	}
	lessEnd := start + less
	sameEnd := lessEnd + same

	i, j, k := start, 0, 0
	for i < lessEnd {
		key := rank[index[i]+h]
		switch {
		case key < pivot:
			i++
		case key == pivot:
			index[i], index[lessEnd+j] = index[lessEnd+j], index[i]
			j++
		default:
			index[i], index[sameEnd+k] = index[sameEnd+k], index[i]
			k++
		}
	}
	for lessEnd+j < sameEnd {
		if rank[index[lessEnd+j]+h] == pivot {
			j++
		} else {
			index[lessEnd+j], index[sameEnd+k] = index[sameEnd+k], index[lessEnd+j]
			k++
		}
	}

	if lessEnd > start {
		splitGroup(index, rank, start, lessEnd-start, h)
	}
	for i := 0; i < sameEnd-lessEnd; i++ {
		rank[index[lessEnd+i]] = sameEnd - 1
	}
	if lessEnd == sameEnd-1 {
		index[lessEnd] = -1
	}
	if start+length > sameEnd {
		splitGroup(index, rank, sameEnd, start+length-sameEnd, h)
	}
}

// matchLength returns the length of the common prefix of a and b.
func matchLength(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// longestMatch binary-searches the suffix array of base for the suffix
// sharing the longest prefix with target. It returns the base offset
// and the match length.
func longestMatch(index []int, base, target []byte, start, end int) (int, int) {
	for end-start >= 2 {
		middle := start + (end-start)/2
		suffix := base[index[middle]:]
		n := min(len(suffix), len(target))
		if bytes.Compare(suffix[:n], target[:n]) < 0 {
			start = middle
		} else {
			end = middle
		}
	}
	startLength := matchLength(base[index[start]:], target)
	endLength := matchLength(base[index[end]:], target)
	if startLength > endLength {
		return index[start], startLength
	}
	return index[end], endLength
}

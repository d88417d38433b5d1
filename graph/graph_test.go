/**
 * Copyright (c) 2019, The Graphcache Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package graph_test

import (
	"fmt"

	"github.com/botobag/graphcache"
	"github.com/botobag/graphcache/ast"
	"github.com/botobag/graphcache/ast/parser"
	"github.com/botobag/graphcache/graph"
	"github.com/botobag/graphcache/observable"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Store", func() {
	parseSet := func(src string) ast.SelectionSet {
		s, err := parser.ParseSelectionSet(src)
		Expect(err).ShouldNot(HaveOccurred())
		return s
	}

	Describe("write/read round trip", func() {
		It("reads back exactly what was written, not stale (invariant 4)", func() {
			store := graph.New()
			selection := parseSet("{ a b c }")
			input := map[string]interface{}{"a": 1, "b": 2, "c": 3}

			_, err := store.Write(graph.WriteInput{RootID: "query", SelectionSet: selection, Data: input})
			Expect(err).ShouldNot(HaveOccurred())

			result, err := store.Read(graph.ReadInput{RootID: "query", SelectionSet: selection})
			Expect(err).ShouldNot(HaveOccurred(), store.DebugString())
			Expect(result.Stale).Should(BeFalse())
			Expect(result.Data).Should(Equal(input))
		})

		It("returns a write-back projection reference-equal to a subsequent Read", func() {
			store := graph.New()
			selection := parseSet("{ a }")

			writeResult, err := store.Write(graph.WriteInput{
				RootID: "query", SelectionSet: selection, Data: map[string]interface{}{"a": 1},
			})
			Expect(err).ShouldNot(HaveOccurred())

			readResult, err := store.Read(graph.ReadInput{RootID: "query", SelectionSet: selection})
			Expect(err).ShouldNot(HaveOccurred())

			Expect(fmt.Sprintf("%p", readResult.Data)).Should(Equal(fmt.Sprintf("%p", writeResult.Data)),
				store.DebugString())
		})
	})

	Describe("partial reads", func() {
		It("fails with a PartialReadError for a missing scalar", func() {
			store := graph.New()
			_, err := store.Write(graph.WriteInput{
				RootID: "query", SelectionSet: parseSet("{ a }"), Data: map[string]interface{}{"a": 1},
			})
			Expect(err).ShouldNot(HaveOccurred())

			_, err = store.Read(graph.ReadInput{RootID: "query", SelectionSet: parseSet("{ a b }")})
			Expect(graphcache.IsPartialRead(err)).Should(BeTrue())
			Expect(graphcache.PartialReadField(err)).Should(Equal("b"))
		})

		It("fails with a PartialReadError when the root entity doesn't exist yet", func() {
			store := graph.New()
			_, err := store.Read(graph.ReadInput{RootID: "query", SelectionSet: parseSet("{ a }")})
			Expect(graphcache.IsPartialRead(err)).Should(BeTrue())
		})
	})

	Describe("watch notifications", func() {
		It("does not notify a watch whose selection doesn't intersect the write (invariant 5)", func() {
			store := graph.New()
			_, err := store.Write(graph.WriteInput{
				RootID: "query", SelectionSet: parseSet("{ a b }"),
				Data: map[string]interface{}{"a": 1, "b": 2},
			})
			Expect(err).ShouldNot(HaveOccurred())

			var notified int
			sub := store.Watch(graph.WatchInput{RootID: "query", SelectionSet: parseSet("{ a }")}).
				Subscribe(observable.Observer{Next: func(interface{}) { notified++ }})
			defer sub.Unsubscribe()
			Expect(notified).Should(Equal(1), "expected the initial subscribe-time emission")

			_, err = store.Write(graph.WriteInput{
				RootID: "query", SelectionSet: parseSet("{ b }"),
				Data: map[string]interface{}{"b": 99},
			})
			Expect(err).ShouldNot(HaveOccurred())

			Expect(notified).Should(Equal(1), store.DebugString())
		})

		It("notifies a watch whose selection intersects the write", func() {
			store := graph.New()
			_, err := store.Write(graph.WriteInput{
				RootID: "query", SelectionSet: parseSet("{ a }"),
				Data: map[string]interface{}{"a": 1},
			})
			Expect(err).ShouldNot(HaveOccurred())

			var results []graph.WatchResult
			sub := store.Watch(graph.WatchInput{RootID: "query", SelectionSet: parseSet("{ a }")}).
				Subscribe(observable.Observer{Next: func(v interface{}) {
					results = append(results, v.(graph.WatchResult))
				}})
			defer sub.Unsubscribe()
			Expect(results).Should(HaveLen(1))

			_, err = store.Write(graph.WriteInput{
				RootID: "query", SelectionSet: parseSet("{ a }"),
				Data: map[string]interface{}{"a": 2},
			})
			Expect(err).ShouldNot(HaveOccurred())

			Expect(results).Should(HaveLen(2), store.DebugString())
			Expect(results[1].Data).Should(Equal(map[string]interface{}{"a": 2}))
			Expect(results[1].Stale).Should(BeFalse())
		})
	})

	Describe("entity identity", func() {
		It("derives a parent-plus-storage-key identity by default", func() {
			store := graph.New()
			_, err := store.Write(graph.WriteInput{
				RootID: "query", SelectionSet: parseSet("{ foo { a } }"),
				Data: map[string]interface{}{"foo": map[string]interface{}{"a": 1}},
			})
			Expect(err).ShouldNot(HaveOccurred())
			Expect(store.DebugString()).Should(ContainSubstring("query.foo"))
		})

		It("prefers the host's GetDataID hook when it returns a non-empty id", func() {
			store := graph.New(graph.WithGetDataID(func(obj map[string]interface{}) string {
				if uid, ok := obj["uid"].(string); ok {
					return "User:" + uid
				}
				return ""
			}))
			_, err := store.Write(graph.WriteInput{
				RootID: "query", SelectionSet: parseSet("{ me { uid name } }"),
				Data: map[string]interface{}{"me": map[string]interface{}{"uid": "1", "name": "Ada"}},
			})
			Expect(err).ShouldNot(HaveOccurred())
			Expect(store.DebugString()).Should(ContainSubstring("User:1"))
		})
	})

	Describe("garbage collection", func() {
		getDataID := func(obj map[string]interface{}) string {
			if uid, ok := obj["uid"].(string); ok {
				return uid
			}
			return ""
		}

		It("sweeps entities unreachable from the live roots", func() {
			store := graph.New(graph.WithGetDataID(getDataID))
			_, err := store.Write(graph.WriteInput{
				RootID: "query", SelectionSet: parseSet("{ me { uid } }"),
				Data: map[string]interface{}{"me": map[string]interface{}{"uid": "1"}},
			})
			Expect(err).ShouldNot(HaveOccurred())

			store.GC()

			_, err = store.Read(graph.ReadInput{RootID: "query", SelectionSet: parseSet("{ me { uid } }")})
			Expect(graphcache.IsPartialRead(err)).Should(BeTrue(), store.DebugString())
		})

		It("keeps entities reachable from a live root", func() {
			store := graph.New(graph.WithGetDataID(getDataID))
			_, err := store.Write(graph.WriteInput{
				RootID: "query", SelectionSet: parseSet("{ me { uid } }"),
				Data: map[string]interface{}{"me": map[string]interface{}{"uid": "1"}},
			})
			Expect(err).ShouldNot(HaveOccurred())

			store.GC("query")

			result, err := store.Read(graph.ReadInput{RootID: "query", SelectionSet: parseSet("{ me { uid } }")})
			Expect(err).ShouldNot(HaveOccurred(), store.DebugString())
			Expect(result.Data).Should(Equal(map[string]interface{}{"me": map[string]interface{}{"uid": "1"}}))
		})
	})
})

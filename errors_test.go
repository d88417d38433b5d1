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

package graphcache_test

import (
	"errors"
	"fmt"

	"github.com/botobag/graphcache"
	"github.com/botobag/graphcache/internal/testutil"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResponsePath", func() {
	It("starts out empty", func() {
		var path graphcache.ResponsePath
		Expect(path.Empty()).Should(BeTrue())
		Expect(path.Keys()).Should(BeEmpty())
	})

	It("accumulates field names and indices in order", func() {
		var path graphcache.ResponsePath
		path.AppendFieldName("todos")
		path.AppendIndex(2)
		path.AppendFieldName("title")

		Expect(path.Empty()).Should(BeFalse())
		Expect(path.Keys()).Should(Equal([]interface{}{"todos", 2, "title"}))
	})
})

var _ = Describe("GraphQLError", func() {
	It("uses Message as its error string", func() {
		err := &graphcache.GraphQLError{Message: "something went wrong"}
		Expect(err.Error()).Should(Equal("something went wrong"))
	})

	It("round-trips through JSON with an equivalent value built a different way (SerializeToJSONAs)", func() {
		var path graphcache.ResponsePath
		path.AppendFieldName("me")
		path.AppendFieldName("name")

		built := &graphcache.GraphQLError{
			Message:   "No scalar value found for field 'name'.",
			Locations: []graphcache.ErrorLocation{{Line: 3, Column: 5}},
			Path:      path,
		}

		var samePath graphcache.ResponsePath
		samePath.AppendFieldName("me")
		samePath.AppendFieldName("name")
		equivalent := &graphcache.GraphQLError{
			Message:   fmt.Sprintf("No scalar value found for field '%s'.", "name"),
			Locations: []graphcache.ErrorLocation{{Line: 3, Column: 5}},
			Path:      samePath,
		}

		Expect(built).Should(testutil.SerializeToJSONAs(equivalent))
	})

	It("distinguishes errors with different messages under SerializeToJSONAs", func() {
		a := &graphcache.GraphQLError{Message: "first"}
		b := &graphcache.GraphQLError{Message: "second"}
		Expect(a).ShouldNot(testutil.SerializeToJSONAs(b))
	})
})

var _ = Describe("Error", func() {
	It("formats as \"op: kind: cause\" when both Op and Err are set", func() {
		cause := errors.New("boom")
		err := graphcache.NewError(graphcache.Op("graph.Write"), graphcache.ErrKindWriteShape, cause)
		Expect(err.Error()).Should(Equal("graph.Write: write shape error: boom"))
		Expect(errors.Unwrap(err)).Should(Equal(cause))
	})

	It("formats as \"op: kind\" when there's no wrapped cause", func() {
		err := graphcache.NewError(graphcache.Op("graph.Read"), graphcache.ErrKindInternal, nil)
		Expect(err.Error()).Should(Equal("graph.Read: internal error"))
	})

	It("formats as just the cause when Op is empty", func() {
		cause := errors.New("boom")
		err := graphcache.NewError("", graphcache.ErrKindOther, cause)
		Expect(err.Error()).Should(Equal("boom"))
	})
})

var _ = Describe("PartialReadError", func() {
	It("is reported by IsPartialRead and carries the failing field", func() {
		err := graphcache.NewPartialReadError(graphcache.Op("graph.Read"), "name", false)
		Expect(graphcache.IsPartialRead(err)).Should(BeTrue())
		Expect(graphcache.PartialReadField(err)).Should(Equal("name"))
		Expect(err.Error()).Should(ContainSubstring("No scalar value found for field 'name'"))
	})

	It("distinguishes a missing reference from a missing scalar in its message", func() {
		err := graphcache.NewPartialReadError(graphcache.Op("graph.Read"), "author", true)
		Expect(err.Error()).Should(ContainSubstring("No graph reference found for field 'author'"))
	})

	It("is not reported for an ordinary error", func() {
		Expect(graphcache.IsPartialRead(errors.New("boom"))).Should(BeFalse())
		Expect(graphcache.IsPartialRead(graphcache.NewError("", graphcache.ErrKindOther, nil))).Should(BeFalse())
	})

	It("returns an empty field for an error that isn't a partial read", func() {
		Expect(graphcache.PartialReadField(errors.New("boom"))).Should(Equal(""))
	})
})

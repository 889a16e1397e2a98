package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/crmsync/pkg/adapter"
	"github.com/harrisonrobin/crmsync/pkg/draftio"
	"github.com/harrisonrobin/crmsync/pkg/normalize"
	"github.com/harrisonrobin/crmsync/pkg/store"
)

// entityCmd builds the list/get/create/update/delete commands of one entity.
func entityCmd[T any](a *app, use, singular string, pick func(*adapter.Services) *adapter.Adapter[T], fromDraft func(normalize.Draft) T) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Manage %s", use),
	}

	var filters []string
	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s, newest first", use),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFilters(filters)
			if err != nil {
				return err
			}
			svc, err := a.Services(cmd.Context())
			if err != nil {
				return err
			}
			ad := pick(svc)
			recs, err := ad.Fetch(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.printJSON(ad.Decode(recs))
		},
	}
	list.Flags().StringArrayVar(&filters, "filter", nil, "exact-match filter as field=value, repeatable")

	get := &cobra.Command{
		Use:   "get ID",
		Short: fmt.Sprintf("Show one %s", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.Services(cmd.Context())
			if err != nil {
				return err
			}
			ad := pick(svc)
			rec, err := ad.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("%s %s not found", singular, args[0])
			}
			return a.printJSON(ad.Decode([]store.Record{rec})[0])
		},
	}

	bulk := func(verb string, apply func(*cobra.Command, *adapter.Adapter[T], []T) (*adapter.BulkResult, error)) *cobra.Command {
		var file string
		c := &cobra.Command{
			Use:   verb + " -f FILE",
			Short: fmt.Sprintf("%s %s from a JSON draft file (- for stdin)", strings.ToUpper(verb[:1])+verb[1:], use),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				drafts, err := draftio.ReadFile(file, a.in)
				if err != nil {
					return err
				}
				values := make([]T, 0, len(drafts))
				for _, d := range drafts {
					values = append(values, fromDraft(d))
				}
				svc, err := a.Services(cmd.Context())
				if err != nil {
					return err
				}
				ad := pick(svc)
				res, err := apply(cmd, ad, values)
				if err != nil {
					return err
				}
				if err := a.printJSON(ad.Decode(res.Records)); err != nil {
					return err
				}
				return bulkError(verb, res)
			},
		}
		c.Flags().StringVarP(&file, "file", "f", "", "JSON file with one draft object, an array, or a stream of objects")
		_ = c.MarkFlagRequired("file")
		return c
	}

	create := bulk("create", func(cmd *cobra.Command, ad *adapter.Adapter[T], values []T) (*adapter.BulkResult, error) {
		return ad.Create(cmd.Context(), values)
	})
	update := bulk("update", func(cmd *cobra.Command, ad *adapter.Adapter[T], values []T) (*adapter.BulkResult, error) {
		return ad.Update(cmd.Context(), values)
	})

	del := &cobra.Command{
		Use:   "delete ID...",
		Short: fmt.Sprintf("Delete %s by id", use),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.Services(cmd.Context())
			if err != nil {
				return err
			}
			ok, err := pick(svc).Delete(cmd.Context(), args...)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("delete was not acknowledged")
			}
			fmt.Fprintf(a.out, "deleted %d %s\n", len(args), use)
			return nil
		},
	}

	cmd.AddCommand(list, get, create, update, del)
	return cmd
}

// parseFilters turns field=value pairs into adapter filters.
func parseFilters(pairs []string) (adapter.Filters, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	f := make(adapter.Filters, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid filter %q, want field=value", p)
		}
		f[k] = strings.TrimSpace(v)
	}
	return f, nil
}

// bulkError reports the items the store did not apply.
func bulkError(verb string, res *adapter.BulkResult) error {
	if !res.Partial() {
		return nil
	}
	msgs := make([]string, 0, len(res.Failures))
	for _, f := range res.Failures {
		msgs = append(msgs, fmt.Sprintf("item %d: %s", f.Index, f.Message))
	}
	return fmt.Errorf("%s: %d of %d items failed: %s", verb, len(res.Failures), res.Submitted, strings.Join(msgs, "; "))
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"pixforge/credentials"
)

// secretFields are masked by "creds get" unless --show is given.
var secretFields = map[string]bool{
	"secretKey":       true,
	"password":        true,
	"privateKey":      true,
	"credentialsJSON": true,
}

func newCredsCommand(ctx *commandContext) *cobra.Command {
	credsCmd := &cobra.Command{
		Use:   "creds",
		Short: "Manage access info for publish targets",
	}
	credsCmd.AddCommand(newCredsSetCommand(), newCredsGetCommand(), newCredsDeleteCommand(), newCredsListCommand())
	return credsCmd
}

func withCredentials(fn func(*credentials.Store) error) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.close()
	store, err := s.credentialStore()
	if err != nil {
		return err
	}
	return fn(store)
}

// parseFields turns field=value arguments into a map.
func parseFields(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid field %q, expected name=value", arg)
		}
		fields[strings.TrimSpace(k)] = v
	}
	return fields, nil
}

func newCredsSetCommand() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "set <key> <field=value>...",
		Short: "Store or update credentials under a key",
		Example: `  pixforge creds set cdn-bucket accessKey=AKIA... secretKey=... bucket=assets region=us-east-1
  pixforge creds set uploads host=files.example.com:22 user=deploy password=...`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			return withCredentials(func(store *credentials.Store) error {
				if replace {
					err = store.Put(args[0], fields)
				} else {
					err = store.Merge(args[0], fields)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %d fields under %s\n", len(fields), args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace all fields instead of merging")
	return cmd
}

func newCredsGetCommand() *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the fields stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCredentials(func(store *credentials.Store) error {
				fields, err := store.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), formatFields(fields, show))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "Print secret fields in clear text")
	return cmd
}

func formatFields(fields map[string]string, show bool) string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, k := range names {
		v := fields[k]
		if secretFields[k] && !show {
			v = "********"
		}
		fmt.Fprintf(&b, "%s=%s\n", k, v)
	}
	return b.String()
}

func newCredsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete the credentials stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCredentials(func(store *credentials.Store) error {
				if _, err := store.Get(args[0]); err != nil {
					return err
				}
				if err := store.Delete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newCredsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List credential keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCredentials(func(store *credentials.Store) error {
				keys, err := store.Keys()
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			})
		},
	}
}

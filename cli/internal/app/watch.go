package app

import (
	"fmt"
	"log"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/opal-lang/formeval/runtime/schema"
)

// newWatchCommand mirrors the teacher's use of fsnotify for a dev-loop file
// watch: every write to schema.json re-runs the analyzer (C7) and reports
// either a parse error or the resulting site/rule/table counts. It never
// evaluates data, since there is none to watch — that remains `eval`'s job.
func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <schema.json>",
		Short: "Re-run the schema analyzer on every change to schema.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			cache := schema.NewParsedSchemaCache()

			analyze := func() {
				doc, err := loadValue(path)
				if err != nil {
					log.Printf("watch: %v", err)
					return
				}
				ps, err := schema.Parse(doc, sharedStore)
				if err != nil {
					log.Printf("watch: parse error: %v", err)
					return
				}
				cache.Insert(path, ps)
				fmt.Printf("%s: %d sites, %d rules, %d tables, %d batches\n",
					path, len(ps.Sites), len(ps.Rules), len(ps.TablePlans), len(ps.Batches))
			}

			analyze()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()
			if err := watcher.Add(path); err != nil {
				return err
			}

			for {
				select {
				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						analyze()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Printf("watch: %v", err)
				case <-cmd.Context().Done():
					return nil
				}
			}
		},
	}
	return cmd
}

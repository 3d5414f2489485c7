// Command josh-filter applies a filter expression to a git history and
// materializes the result as a ref in the current repository, or expands
// edits made against a previously filtered ref back onto the original
// history.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/cobra"

	"github.com/josh-project/josh-go"
	"github.com/josh-project/josh-go/internal/config"
	"github.com/josh-project/josh-go/internal/memo"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootCmd struct {
	*cobra.Command

	configPath string
	memoPath   string
	update     string
	stat       bool
	unapply    bool
	onto       string
}

func newRootCmd() *rootCmd {
	c := &rootCmd{
		Command: &cobra.Command{
			Use:   "josh-filter <filter> <source-ref>",
			Short: "apply a josh filter expression to a git history",
			Args:  cobra.ExactArgs(2),
		},
	}

	flags := c.Flags()
	flags.StringVarP(&c.configPath, "config", "c", "", "path to the configuration file")
	flags.StringVar(&c.memoPath, "memo", "", "path to the memoization database (default: temp file)")
	flags.StringVar(&c.update, "update", "", "ref to compare-and-set to the filtered result")
	flags.BoolVarP(&c.stat, "stat", "s", false, "print the normalized filter instead of applying it")
	flags.BoolVar(&c.unapply, "unapply", false, "expand edits on <source-ref> back onto --onto instead of filtering forward")
	flags.StringVar(&c.onto, "onto", "", "original history to expand onto (required with --unapply)")

	c.RunE = func(_ *cobra.Command, args []string) error {
		return c.run(args[0], args[1])
	}

	return c
}

func (c *rootCmd) loadConfig() (*config.Config, error) {
	if c.configPath == "" {
		return config.Default(), nil
	}
	data, err := os.ReadFile(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", c.configPath, err)
	}
	return config.Parse(data)
}

func (c *rootCmd) run(filterExpr, sourceRefName string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if c.memoPath == "" {
		c.memoPath = cfg.MemoDBPath
	}

	f, err := josh.Parse(filterExpr)
	if err != nil {
		return fmt.Errorf("failed to parse filter: %w", err)
	}

	if c.stat {
		fmt.Println(josh.Pretty(f, 0))
		fmt.Printf("filter-id: %x\n", f.ID())
		return nil
	}

	repo, err := git.PlainOpenWithOptions(".", &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return fmt.Errorf("failed to open git repository: %w", err)
	}

	store, err := memo.Open(c.memoPath)
	if err != nil {
		return fmt.Errorf("failed to open memoization store: %w", err)
	}
	defer store.Close()
	memoStore := josh.NewLayeredMemoStore(store)

	sourceHash, err := resolveRef(repo, sourceRefName)
	if err != nil {
		return err
	}
	sourceCommit, err := repo.CommitObject(sourceHash)
	if err != nil {
		return fmt.Errorf("failed to load source commit %s: %w", sourceHash, err)
	}

	var resultHash plumbing.Hash
	if c.unapply {
		resultHash, err = c.runUnapply(ctx, repo, memoStore, f, sourceCommit)
	} else {
		resultHash, err = c.runForward(ctx, repo, memoStore, f, sourceCommit)
	}
	if err != nil {
		return err
	}

	if c.update == "" {
		fmt.Println(resultHash.String())
		return nil
	}

	rs := josh.NewRefStore(repo.Storer)
	targetRef := plumbing.ReferenceName(cfg.DefaultRefNamespace + c.update)
	if _, err := repo.Reference(plumbing.ReferenceName(c.update), false); err == nil {
		targetRef = plumbing.ReferenceName(c.update)
	}

	_, err = josh.UpdateRefWithRetry(ctx, rs, targetRef, cfg.RefRaceRetries, func(plumbing.Hash) (plumbing.Hash, error) {
		return resultHash, nil
	})
	if err != nil {
		return fmt.Errorf("failed to update ref %s: %w", targetRef, err)
	}

	fmt.Printf("%s -> %s\n", targetRef, resultHash)
	return nil
}

func (c *rootCmd) runForward(ctx context.Context, repo *git.Repository, memoStore josh.MemoStore, f *josh.Filter, source *object.Commit) (plumbing.Hash, error) {
	newHead, err := josh.FilterHistory(ctx, repo.Storer, memoStore, f, source)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to filter history: %w", err)
	}
	if newHead == nil {
		return plumbing.ZeroHash, nil
	}
	return newHead.Hash, nil
}

func (c *rootCmd) runUnapply(ctx context.Context, repo *git.Repository, memoStore josh.MemoStore, f *josh.Filter, edited *object.Commit) (plumbing.Hash, error) {
	if c.onto == "" {
		return plumbing.ZeroHash, fmt.Errorf("--unapply requires --onto")
	}
	ontoHash, err := resolveRef(repo, c.onto)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	ontoCommit, err := repo.CommitObject(ontoHash)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to load --onto commit %s: %w", ontoHash, err)
	}

	if err := checkEditedPatches(edited, f); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("rejected by pre-check: %w", err)
	}

	origins, err := josh.BuildOriginMap(ctx, repo.Storer, memoStore, f, ontoCommit)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to build origin map: %w", err)
	}

	newOriginal, err := josh.UnapplyHistory(ctx, repo.Storer, memoStore, f, origins, edited)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to unapply history: %w", err)
	}
	return newOriginal.Hash, nil
}

// checkEditedPatches runs the cheap per-patch pre-check (§4.4's stage one of
// push validation) against the diff edited introduces over its first
// parent, ahead of the authoritative tree-level unapply. An edited commit
// with no parent has nothing to diff, so it falls straight through to that
// tree-level check.
func checkEditedPatches(edited *object.Commit, f *josh.Filter) error {
	if edited.NumParents() == 0 {
		return nil
	}
	parent, err := edited.Parent(0)
	if err != nil {
		return fmt.Errorf("failed to load parent of %s: %w", edited.Hash, err)
	}
	patch, err := parent.Patch(edited)
	if err != nil {
		return fmt.Errorf("failed to diff %s against its parent: %w", edited.Hash, err)
	}
	return josh.CheckFilePatchAgainstFilter(patch.FilePatches(), f).ToError()
}

func resolveRef(repo *git.Repository, name string) (plumbing.Hash, error) {
	h, err := repo.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve %q: %w", name, err)
	}
	return *h, nil
}

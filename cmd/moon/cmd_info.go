package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/moonctx"
)

type infoCommand struct {
	tree bool
}

func (c *infoCommand) Name() string      { return "info" }
func (c *infoCommand) Args() string      { return "" }
func (c *infoCommand) ShortHelp() string { return "Print information about the current module" }
func (c *infoCommand) LongHelp() string {
	return "Info prints the resolved module name and its packages. --tree renders the package set as one level of tree branches under the module name."
}
func (c *infoCommand) Hidden() bool { return false }

func (c *infoCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.tree, "tree", false, "render the package set as a tree")
}

func (c *infoCommand) Run(mc *moonctx.Ctx, args []string) error {
	proj, err := mc.LoadProject(*dirFlag)
	if err != nil {
		return err
	}

	ids := make([]graph.PackageID, 0, len(proj.Packages))
	for id := range proj.Packages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if !c.tree {
		fmt.Printf("module %s\n", proj.Module.Name)
		for _, id := range ids {
			fmt.Println(" ", id)
		}
		return nil
	}

	return renderTree(os.Stdout, proj.Module.Name, ids)
}

func renderTree(w *os.File, root graph.ModuleName, ids []graph.PackageID) error {
	fmt.Fprintln(w, root)
	rootPrefix := string(root)
	for i, id := range ids {
		rel := string(id)
		if len(rel) > len(rootPrefix) {
			rel = rel[len(rootPrefix):]
		}
		branch := "├──"
		if i == len(ids)-1 {
			branch = "└──"
		}
		fmt.Fprintf(w, "%s %s\n", branch, rel)
	}
	return nil
}

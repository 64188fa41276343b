package drive

import (
	"strings"

	"google.golang.org/api/drive/v3"
)

// folderTree indexes the folder listing by id and by parent.
type folderTree struct {
	byID     map[string]*drive.File
	children map[string][]string
}

func newFolderTree(folders []*drive.File) *folderTree {
	t := &folderTree{
		byID:     make(map[string]*drive.File, len(folders)),
		children: make(map[string][]string),
	}
	for _, f := range folders {
		t.byID[f.Id] = f
		for _, p := range f.Parents {
			t.children[p] = append(t.children[p], f.Id)
		}
	}
	return t
}

// descendants returns id followed by all folders below it, breadth first.
func (t *folderTree) descendants(id string) []string {
	out := []string{id}
	visited := map[string]bool{id: true}
	for i := 0; i < len(out); i++ {
		for _, child := range t.children[out[i]] {
			if !visited[child] {
				visited[child] = true
				out = append(out, child)
			}
		}
	}
	return out
}

// path joins the names from the outermost known ancestor down to id.
// Unknown ids, such as a drive root, contribute nothing.
func (t *folderTree) path(id string) string {
	var names []string
	visited := make(map[string]bool)
	for cur := id; cur != "" && !visited[cur]; {
		visited[cur] = true
		f, ok := t.byID[cur]
		if !ok {
			break
		}
		names = append(names, f.Name)
		cur = ""
		if len(f.Parents) > 0 {
			cur = f.Parents[0]
		}
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "/")
}

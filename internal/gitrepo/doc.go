// Package gitrepo synchronizes local repository clones and inspects commit ancestry.
package gitrepo

package gitcmd

import (
	"errors"
	"strings"
)

// Kind partitions git failures by the recovery they allow. Everything the
// worktree fallback chain branches on is a Kind, so the substring matching
// against git's message text stays confined to Classify.
type Kind int

const (
	// KindOther is any failure the fallback chain does not recognize.
	KindOther Kind = iota
	// KindBranchExists: the branch a worktree add -b tried to create exists.
	KindBranchExists
	// KindWorktreeInUse: the branch or path is held by another worktree.
	KindWorktreeInUse
	// KindInvalidRef: the base ref does not resolve.
	KindInvalidRef
	// KindNotARepo: the target directory is not a git repository.
	KindNotARepo
	// KindNoRemote: the named remote does not exist.
	KindNoRemote
)

func (k Kind) String() string {
	switch k {
	case KindBranchExists:
		return "branch-exists"
	case KindWorktreeInUse:
		return "worktree-in-use"
	case KindInvalidRef:
		return "invalid-ref"
	case KindNotARepo:
		return "not-a-repo"
	case KindNoRemote:
		return "no-remote"
	default:
		return "other"
	}
}

// Recoverable reports whether the worktree fallback chain may degrade to
// workspace-only mode on this kind instead of aborting.
func (k Kind) Recoverable() bool {
	return k != KindOther
}

// Classify maps a git failure to its Kind. Non-git errors and successful
// results classify as KindOther.
func Classify(err error) Kind {
	var gerr *GitError
	if !errors.As(err, &gerr) {
		return KindOther
	}
	msg := gerr.Stderr

	switch {
	case contains(msg, "already used by worktree"),
		contains(msg, "already checked out"):
		return KindWorktreeInUse
	case contains(msg, "already exists"):
		return KindBranchExists
	case contains(msg, "invalid reference"),
		contains(msg, "not a valid ref"):
		return KindInvalidRef
	case contains(msg, "does not appear to be a git repository"),
		contains(msg, "not a git repository"):
		return KindNotARepo
	case contains(msg, "No such remote"):
		return KindNoRemote
	default:
		return KindOther
	}
}

func contains(msg, sub string) bool {
	return strings.Contains(strings.ToLower(msg), strings.ToLower(sub))
}

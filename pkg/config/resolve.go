package config

import "fmt"

// Resolve merges jig.toml, the user config and defaults for repoRoot.
// Precedence for every value: jig.toml, then the user's entry for this
// repository, then the user's global default, then the built-in default.
func Resolve(repoRoot, userDir string) (Effective, error) {
	pf, err := LoadProjectFile(repoRoot)
	if err != nil {
		return Effective{}, err
	}
	uc, err := LoadUserConfig(userDir)
	if err != nil {
		return Effective{}, fmt.Errorf("user config: %w", err)
	}
	return merge(repoRoot, pf, uc), nil
}

func merge(repoRoot string, pf *ProjectFile, uc *UserConfig) Effective {
	eff := Effective{
		Repo:      DefaultRepoConfig(),
		CopyFiles: pf.Worktree.Copy,
		AutoSpawn: pf.Spawn.Auto,
		Agent:     DefaultAgent,
		Health:    pf.Health,
	}

	entry, _ := uc.repo(repoRoot)
	eff.Repo.BaseBranch = firstNonEmpty(pf.Worktree.Base, entry.Base, uc.Base, eff.Repo.BaseBranch)
	eff.Repo.OnCreateHook = firstNonEmpty(pf.Worktree.OnCreate, entry.OnCreate)
	eff.Repo.WorktreeDir = firstNonEmpty(pf.Worktree.Dir, eff.Repo.WorktreeDir)
	if pf.Review.Auto != nil {
		eff.Repo.AutoReview = *pf.Review.Auto
	}
	if pf.Agent.Type != "" {
		eff.Agent = pf.Agent.Type
	}
	if eff.Health.MaxNudges <= 0 {
		eff.Health.MaxNudges = DefaultMaxNudges
	}
	if eff.Health.CaptureLines <= 0 {
		eff.Health.CaptureLines = DefaultCaptureLines
	}
	return eff
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

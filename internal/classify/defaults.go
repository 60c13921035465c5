package classify

// DefaultRules mirrors the pre-distillation reference tool's built-in
// sensitivity rules (§3A): common auth/crypto/secrets path shapes, all
// weighted 1.0. None is a file-name rule such as *login*, so
// auth/login.py classifies as auth=1.00 (Scenario A); directory rules can
// still stack, e.g. auth/session/x.py matches both **/auth/** and
// **/session/** and scores auth=2.00.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "**/auth/**", Tag: "auth", Weight: 1.0},
		{Pattern: "**/oauth/**", Tag: "auth", Weight: 1.0},
		{Pattern: "**/rbac/**", Tag: "auth", Weight: 1.0},
		{Pattern: "**/session/**", Tag: "auth", Weight: 1.0},
		{Pattern: "**/token/**", Tag: "auth", Weight: 1.0},
		{Pattern: "**/iam/**", Tag: "auth", Weight: 1.0},
		{Pattern: "**/sso/**", Tag: "auth", Weight: 1.0},

		{Pattern: "**/crypto/**", Tag: "crypto", Weight: 1.0},
		{Pattern: "**/tls/**", Tag: "crypto", Weight: 1.0},
		{Pattern: "**/ssl/**", Tag: "crypto", Weight: 1.0},

		{Pattern: "**/secrets/**", Tag: "secrets", Weight: 1.0},
		{Pattern: "**/keys/**", Tag: "secrets", Weight: 1.0},
		{Pattern: "**/*.pem", Tag: "secrets", Weight: 1.0},
		{Pattern: "**/*.key", Tag: "secrets", Weight: 1.0},
		{Pattern: "**/*.p12", Tag: "secrets", Weight: 1.0},
		{Pattern: "**/*.pfx", Tag: "secrets", Weight: 1.0},
	}
}

// DefaultAuthorExcludeRegexes mirrors the reference tool's default bot
// identities (§3A), disabled when MiningConfig.NoDefaultAuthorExcludes
// is set.
func DefaultAuthorExcludeRegexes() []string {
	return []string{
		`(?i)dependabot`,
		`(?i)renovate\[bot\]`,
		`(?i)github-actions\[bot\]`,
	}
}

// DefaultCochangeExcludes mirrors the reference tool's default
// co-change exclusion globs (§3A): lockfiles, CI config, editor config.
func DefaultCochangeExcludes() []string {
	return []string{
		"**/package-lock.json",
		"**/yarn.lock",
		"**/pnpm-lock.yaml",
		"**/Cargo.lock",
		"**/go.sum",
		"**/poetry.lock",
		"**/.github/**",
		"**/.vscode/**",
		"**/.idea/**",
	}
}

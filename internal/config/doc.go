// Package config provides configuration loading, merging, and path management
// for the flexmod tool.
//
// # Configuration Loading
//
// Load merges configuration from, in increasing priority:
//
//  1. Global config in the XDG config dir (flexmod.json / flexmod.jsonc)
//  2. Project config in the working directory (flexmod.json(c) and
//     .flexmod/flexmod.json(c))
//  3. The file named by FLEXMOD_CONFIG
//  4. Environment variables FLEXMOD_MODS_DIR, FLEXMOD_LOG_LEVEL, FLEXMOD_PORT
//
// A .env file in the working directory is read with godotenv before any of
// the above and never overrides variables that are already set.
//
// # Supported Formats
//
// Both JSON and JSONC are accepted; comments and trailing commas are
// removed with tidwall/jsonc before decoding.
//
// # Variable Interpolation
//
// String values may reference {env:VAR} and {file:path}. Relative file paths
// resolve against the directory of the config file that mentions them.
//
// # Example
//
//	{
//	  "mods_dir": "{env:GAME_DIR}/Mods",
//	  "Enabled_FlexMod": ["Lamp"],
//	  "scanPatterns": ["**/*.xml", "**/*.lua"],
//	  "server": {"port": 4780},
//	  "log": {"level": "DEBUG"}
//	}
package config

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/runcachego/internal/meta"
)

const bashCompletionScript = `# bash completion for runcache
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_runcache()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "get put rm reset ls run diff serve watch completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
  local common="--attrs -a --color -c --filter -f --output -o --sort -s --titles -t --tldr"
  local cache="--file --slot --ttl --sealed --passphrase -p --coord --token"

    case "$cmd" in
    get)
      local opts="$common $cache --path"
            ;;
        put)
      local opts="$common $cache --json"
            ;;
        rm|reset|diff)
      local opts="$common $cache"
            ;;
        ls)
      local opts="$common $cache --schema"
            ;;
        run)
      local opts="$common $cache --runfile --env --refresh"
            ;;
        serve)
            local opts="--addr --token --tldr"
            ;;
        watch)
      local opts="$common $cache --interval -i"
            ;;
        completion)
            local opts="bash zsh"
            COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
        return 0
    fi

    if [[ "$prev" == "--file" || "$prev" == "--runfile" ]]; then
        COMPREPLY=( $(compgen -o default -- "$cur") )
        return 0
    fi

  # diff takes snapshot specs as positionals
  if [[ "$cmd" == "diff" && "$cur" != -* ]]; then
    COMPREPLY=( $(compgen -W "slot file" -o default -- "$cur") )
    return 0
  fi

  COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
  return 0
}

complete -F _runcache runcache
`

const zshCompletionScript = `#compdef runcache

_runcache() {
  local -a cmds
  cmds=(
    'get:print a cached value'
    'put:store a value'
    'rm:remove a key'
    'reset:empty the cache'
    'ls:list live cache entries'
    'run:run a command through the cache'
    'diff:diff two cache snapshots'
    'serve:host the coordination service'
    'watch:watch the cache live'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-a --attrs)'{-a,--attrs}'[attributes to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--tldr[show tldr page]'
  )

  local -a cache
  cache=(
  '--file[durable cache document]:file:_files'
  '--slot[distributed slot key]:slot'
  '--ttl[time-to-live in seconds]:seconds'
  '--sealed[cache document is sealed]'
  '(-p --passphrase)'{-p,--passphrase}'[passphrase for a sealed document]:passphrase'
  '--coord[remote coordination service URL]:url'
  '--token[bearer token]:token'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'runcache commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    get)
      _arguments -C \
        $common \
        $cache \
        '--path[dotted path into a composite value]:path' \
        '1:key'
      ;;
    put)
      _arguments -C \
        $common \
        $cache \
        '--json[parse VALUE as JSON]' \
        '1:key' \
        '2:value'
      ;;
    rm)
      _arguments -C \
        $common \
        $cache \
        '1:key'
      ;;
    reset)
      _arguments -C $common $cache
      ;;
    ls)
      _arguments -C \
        $common \
        $cache \
        '--schema[dump schema]'
      ;;
    run)
      _arguments -C \
        $common \
        $cache \
        '--runfile[task definition file]:file:_files' \
        '--env[environment name]:env' \
        '--refresh[drop the cached value and recompute]' \
        '1:name' \
        '*:args'
      ;;
    diff)
      _arguments -C \
        $common \
        $cache \
        '1:spec:((slot file))' \
        '2:spec:((slot file))'
      ;;
    serve)
      _arguments -C \
        '--addr[listen address]:addr' \
        '--token[bearer token]:token' \
        '--tldr[show tldr page]'
      ;;
    watch)
      _arguments -C \
        $common \
        $cache \
        '(-i --interval)'{-i,--interval}'[refresh interval in seconds]:seconds'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _runcache runcache runcachego
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(os.Stdout, bashCompletionScript)
	case "zsh":
		fmt.Fprint(os.Stdout, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(os.Stdout, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(os.Stdout, bashCompletionScript)
		} else {
			fmt.Fprintln(os.Stderr, "usage: runcache completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "runcache completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}

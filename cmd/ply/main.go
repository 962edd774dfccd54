// ply converts property lists, binary or XML, to JSON, YAML or XML.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
	yaml "gopkg.in/yaml.v2"

	"github.com/halfmoonlabs/plist"
)

var opts struct {
	Format string `short:"f" long:"format" default:"json" choice:"json" choice:"yaml" choice:"xml" description:"output format"`

	Args struct {
		File string `positional-arg-name:"FILE" description:"property list to convert"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	f, err := os.Open(opts.Args.File)
	if err != nil {
		fatal(err)
	}
	defer f.Close()

	var v interface{}
	if err := plist.NewDecoder(f).Decode(&v); err != nil {
		fatal(err)
	}

	var out []byte
	switch opts.Format {
	case "yaml":
		out, err = yaml.Marshal(v)
	case "xml":
		out, err = plist.MarshalXML(v)
	default:
		out, err = json.MarshalIndent(v, "", "  ")
		out = append(out, '\n')
	}
	if err != nil {
		fatal(err)
	}
	os.Stdout.Write(out)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "ply:", err)
	os.Exit(1)
}

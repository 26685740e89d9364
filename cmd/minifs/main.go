package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	minifs "github.com/ztygod/mini-fs"
)

const usage = `minifs - MiniFS image tool

Usage:
  minifs format <image>                       Create and format a new image
  minifs ls <image> <path>                    List a directory's entries
  minifs cat <image> <dir> <name>             Print a file's contents
  minifs mkdir <image> <dir> <name>           Create a subdirectory
  minifs put <image> <dir> <name> <content>   Create or overwrite a file
  minifs rm <image> <dir> <name>               Delete a file
  minifs rmdir <image> <dir> <name>            Delete an empty directory
  minifs stat <image> <dir> <name>             Show inode metadata
  minifs help                                  Show this help message

Pass -v before the command to see engine trace logging on stderr.
`

func main() {
	log.SetOutput(io.Discard)

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "-v" {
		log.SetOutput(os.Stderr)
		args = args[1:]
	}

	if len(args) < 1 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cmd := args[0]
	if cmd == "help" {
		fmt.Print(usage)
		return
	}

	if err := run(cmd, args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	switch cmd {
	case "format":
		if len(args) != 1 {
			return fmt.Errorf("usage: minifs format <image>")
		}
		return doFormat(args[0])

	case "ls":
		if len(args) != 2 {
			return fmt.Errorf("usage: minifs ls <image> <path>")
		}
		return withMounted(args[0], func(fsys *minifs.FileSystem) error {
			entries, err := fsys.ListDir(args[1])
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Println(e)
			}
			return nil
		})

	case "cat":
		if len(args) != 3 {
			return fmt.Errorf("usage: minifs cat <image> <dir> <name>")
		}
		return withMounted(args[0], func(fsys *minifs.FileSystem) error {
			data, err := fsys.ReadFile(args[1], args[2])
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		})

	case "mkdir":
		if len(args) != 3 {
			return fmt.Errorf("usage: minifs mkdir <image> <dir> <name>")
		}
		return withMountedSynced(args[0], func(fsys *minifs.FileSystem) error {
			_, err := fsys.CreateDir(args[1], args[2])
			return err
		})

	case "put":
		if len(args) != 4 {
			return fmt.Errorf("usage: minifs put <image> <dir> <name> <content>")
		}
		return withMountedSynced(args[0], func(fsys *minifs.FileSystem) error {
			_, err := fsys.CreateOrWriteFile(args[1], args[2], []byte(args[3]))
			return err
		})

	case "rm":
		if len(args) != 3 {
			return fmt.Errorf("usage: minifs rm <image> <dir> <name>")
		}
		return withMountedSynced(args[0], func(fsys *minifs.FileSystem) error {
			return fsys.DeleteFile(args[1], args[2])
		})

	case "rmdir":
		if len(args) != 3 {
			return fmt.Errorf("usage: minifs rmdir <image> <dir> <name>")
		}
		return withMountedSynced(args[0], func(fsys *minifs.FileSystem) error {
			return fsys.DeleteDir(args[1], args[2])
		})

	case "stat":
		if len(args) != 3 {
			return fmt.Errorf("usage: minifs stat <image> <dir> <name>")
		}
		return withMounted(args[0], func(fsys *minifs.FileSystem) error {
			st, err := fsys.Stat(args[1], args[2])
			if err != nil {
				return err
			}
			printStat(st)
			return nil
		})

	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func doFormat(imagePath string) error {
	dev, err := minifs.OpenFileDevice(imagePath, minifs.DefaultTotalBlocks)
	if err != nil {
		return err
	}
	defer dev.Close()

	fsys := minifs.New(dev)
	return fsys.Format()
}

// withMounted opens the image, mounts it, runs fn, and always unmounts
// afterward regardless of fn's outcome.
func withMounted(imagePath string, fn func(*minifs.FileSystem) error) error {
	dev, err := minifs.OpenFileDevice(imagePath, minifs.DefaultTotalBlocks)
	if err != nil {
		return err
	}
	defer dev.Close()

	fsys := minifs.New(dev)
	if err := fsys.Mount(); err != nil {
		return err
	}
	result := fn(fsys)
	if err := fsys.Unmount(); err != nil && result == nil {
		result = err
	}
	return result
}

// withMountedSynced is withMounted for commands that mutate the image:
// Unmount already syncs when dirty, this name just documents intent at
// the call site.
func withMountedSynced(imagePath string, fn func(*minifs.FileSystem) error) error {
	return withMounted(imagePath, fn)
}

func printStat(st minifs.Inode) {
	fmt.Printf("id:         %s\n", st.ID)
	fmt.Printf("type:       %s\n", st.Kind)
	fmt.Printf("size:       %d\n", st.Size)
	fmt.Printf("perm:       %s\n", permString(st.Perm))
	fmt.Printf("uid/gid:    %d/%d\n", st.UID, st.GID)
	fmt.Printf("link_count: %d\n", st.LinkCount)
}

func permString(perm uint16) string {
	bits := "rwxrwxrwx"
	var b strings.Builder
	for i := 0; i < 9; i++ {
		if perm&(1<<(8-i)) != 0 {
			b.WriteByte(bits[i])
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

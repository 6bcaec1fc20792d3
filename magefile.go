//go:build mage

package main

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	_ "github.com/magefile/mage/mage"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var Default = Build

var Aliases = map[string]any{
	"polarmap": Build,
	"package":  Package,
}

const target = "polarmap"

var vLastVersion string
var vLastCommit string
var vIsNightly bool
var vBuildVersion string

func Build() error {
	mg.Deps(GetVersion)
	fmt.Println("Build", target, vBuildVersion, "...")

	mod := "github.com/machbase/neo-polarmap"
	timestamp := time.Now().Format("2006-01-02T15:04:05")
	gitSHA := vLastCommit
	if len(gitSHA) > 8 {
		gitSHA = gitSHA[0:8]
	}

	env := map[string]string{"GO111MODULE": "on", "CGO_ENABLED": "0"}
	ldflags := strings.Join([]string{
		"-X", fmt.Sprintf("%s/mods.versionString=%s", mod, vBuildVersion),
		"-X", fmt.Sprintf("%s/mods.versionGitSHA=%s", mod, gitSHA),
		"-X", fmt.Sprintf("%s/mods.buildTimestamp=%s", mod, timestamp),
	}, " ")
	args := []string{"build", "-ldflags", ldflags}
	if runtime.GOOS == "windows" {
		args = append(args, "-o", fmt.Sprintf("./tmp/%s.exe", target))
	} else {
		args = append(args, "-o", fmt.Sprintf("./tmp/%s", target))
	}
	args = append(args, fmt.Sprintf("./main/%s", target))

	if err := sh.RunV("go", "mod", "tidy"); err != nil {
		return err
	}
	if err := sh.RunWithV(env, "go", args...); err != nil {
		return err
	}
	fmt.Println("Build done.")
	return nil
}

func Test() error {
	os.MkdirAll("./tmp", 0755)
	if err := sh.RunV("go", "test", "./...", "-cover", "-coverprofile", "./tmp/cover.out"); err != nil {
		return err
	}
	fmt.Println("Test done.")
	return nil
}

func Package() error {
	mg.Deps(Build)

	bdir := fmt.Sprintf("%s-%s-%s-%s", target, vBuildVersion, runtime.GOOS, runtime.GOARCH)
	os.MkdirAll("packages", 0755)
	os.RemoveAll(filepath.Join("packages", bdir))
	os.Mkdir(filepath.Join("packages", bdir), 0755)

	exe := target
	if runtime.GOOS == "windows" {
		exe = target + ".exe"
	}
	if err := os.Rename(filepath.Join("tmp", exe), filepath.Join("packages", bdir, exe)); err != nil {
		return err
	}
	conf, err := sh.Output(filepath.Join("packages", bdir, exe), "gen-config")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join("packages", bdir, "polarmap.hcl"), []byte(conf+"\n"), 0644); err != nil {
		return err
	}

	if err := archivePackage(fmt.Sprintf("./packages/%s.zip", bdir), filepath.Join("./packages", bdir)); err != nil {
		return err
	}
	os.RemoveAll(filepath.Join("./packages", bdir))
	fmt.Println("Package done.")
	return nil
}

func archivePackage(dst string, src ...string) error {
	archive, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer archive.Close()
	zipWriter := zip.NewWriter(archive)

	for _, file := range src {
		if err := archiveAddEntry(zipWriter, file, fmt.Sprintf("packages%s", string(os.PathSeparator))); err != nil {
			return err
		}
	}
	return zipWriter.Close()
}

func archiveAddEntry(zipWriter *zip.Writer, entry string, prefix string) error {
	stat, err := os.Stat(entry)
	if err != nil {
		return err
	}
	if stat.IsDir() {
		entries, err := os.ReadDir(entry)
		if err != nil {
			return err
		}
		for _, ent := range entries {
			if err := archiveAddEntry(zipWriter, filepath.Join(entry, ent.Name()), prefix); err != nil {
				return err
			}
		}
		return nil
	}
	fd, err := os.Open(entry)
	if err != nil {
		return err
	}
	defer fd.Close()

	entryName := strings.TrimPrefix(entry, prefix)
	fmt.Println("Archive", entryName)
	w, err := zipWriter.Create(entryName)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, fd)
	return err
}

// GetVersion derives the build version from the latest tag,
// commits after it build the next patch as a snapshot.
func GetVersion() error {
	repo, err := git.PlainOpen(".")
	if err != nil {
		return err
	}
	headRef, err := repo.Head()
	if err != nil {
		return err
	}
	commit, err := repo.CommitObject(headRef.Hash())
	if err != nil {
		return err
	}
	vLastCommit = commit.Hash.String()

	var lastTag *object.Tag
	tagiter, err := repo.TagObjects()
	if err != nil {
		return err
	}
	err = tagiter.ForEach(func(tag *object.Tag) error {
		tagCommit, err := tag.Commit()
		if err != nil {
			return err
		}
		if lastTag == nil {
			lastTag = tag
		} else {
			lastCommit, _ := lastTag.Commit()
			if tagCommit.Committer.When.Sub(lastCommit.Committer.When) > 0 {
				lastTag = tag
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if lastTag == nil {
		vLastVersion = "v0.0.0"
		vIsNightly = true
	} else {
		lastTagCommit, err := lastTag.Commit()
		if err != nil {
			return err
		}
		vLastVersion = lastTag.Name
		vIsNightly = lastTagCommit.Hash.String() != vLastCommit
	}
	lastVer, err := semver.NewVersion(vLastVersion)
	if err != nil {
		return err
	}
	if vIsNightly {
		vBuildVersion = fmt.Sprintf("v%d.%d.%d-snapshot", lastVer.Major(), lastVer.Minor(), lastVer.Patch()+1)
	} else {
		vBuildVersion = fmt.Sprintf("v%d.%d.%d", lastVer.Major(), lastVer.Minor(), lastVer.Patch())
	}
	return nil
}

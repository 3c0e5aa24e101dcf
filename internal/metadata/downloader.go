package metadata

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/hashicorp/go-version"

	"proxygen/internal/logger"
)

const definitionAddress string = "https://api.nuget.org/v3/index.json"

// Package holding the Windows metadata, used when no package is named.
const DefaultPackage string = "microsoft.windows.sdk.win32metadata"

// Downloads the newest release of a NuGet package and extracts its first metadata file
// (.winmd, falling back to .dll) to dest.
func DownloadMetadata(packageID string, dest string) error {
	if packageID == "" {
		packageID = DefaultPackage
	}
	packageID = strings.ToLower(packageID)

	baseAddress, err := getBaseAddress()
	if err != nil {
		return err
	}

	versionsResponse, err := queryGet(fmt.Sprintf("%s%s/index.json", baseAddress, packageID))
	if err != nil {
		return err
	}
	versions, err := parse[packageVersions](versionsResponse)
	if err != nil {
		return err
	}
	latest, err := latestVersion(versions.Versions)
	if err != nil {
		return fmt.Errorf("package %s: %w", packageID, err)
	}

	logger.Info("downloading metadata", "package", packageID, "version", latest)
	nugetBytes, err := queryGet(fmt.Sprintf("%s%s/%s/%s.%s.nupkg", baseAddress, packageID, latest, packageID, latest))
	if err != nil {
		return err
	}

	metadataBytes, err := extractMetadata(nugetBytes)
	if err != nil {
		return fmt.Errorf("package %s %s: %w", packageID, latest, err)
	}
	return os.WriteFile(dest, metadataBytes, 0644)
}

// Picks the highest version, prereleases included. Returns it as published.
func latestVersion(published []string) (string, error) {
	if len(published) == 0 {
		return "", fmt.Errorf("no published versions")
	}

	ordered := make([]*version.Version, len(published))
	for i, versionString := range published {
		parsed, err := version.NewVersion(versionString)
		if err != nil {
			return "", fmt.Errorf("error parsing version: %s", versionString)
		}
		ordered[i] = parsed
	}

	sort.Sort(version.Collection(ordered))
	return ordered[len(ordered)-1].Original(), nil
}

func extractMetadata(nugetBytes []byte) ([]byte, error) {
	bytesReader := bytes.NewReader(nugetBytes)
	nuget, err := zip.NewReader(bytesReader, int64(bytesReader.Len()))
	if err != nil {
		return nil, err
	}

	for _, ext := range []string{".winmd", ".dll"} {
		for _, file := range nuget.File {
			if !strings.EqualFold(filepath.Ext(file.Name), ext) {
				continue
			}
			reader, err := file.Open()
			if err != nil {
				return nil, err
			}
			defer reader.Close()
			return io.ReadAll(reader)
		}
	}

	return nil, fmt.Errorf("package holds no metadata file")
}

func getBaseAddress() (string, error) {
	response, err := queryGet(definitionAddress)
	if err != nil {
		return "", err
	}
	index, err := parse[nugetIndex](response)
	if err != nil {
		return "", err
	}

	for _, resource := range index.Resources {
		if strings.Contains(resource.Type, "PackageBaseAddress") {
			return resource.Id, nil
		}
	}

	return "", fmt.Errorf("NuGet index has no package base address")
}

func parse[T any](source []byte) (T, error) {
	var parsedBody T
	err := json.Unmarshal(source, &parsedBody)
	return parsedBody, err
}

func queryGet(url string) ([]byte, error) {
	response, err := http.Get(url)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, response.Status)
	}

	return io.ReadAll(response.Body)
}

type packageVersions struct {
	Versions []string `json:"versions"`
}

type nugetIndex struct {
	Resources []nugetResource `json:"resources"`
}

type nugetResource struct {
	Id   string `json:"@id"`
	Type string `json:"@type"`
}

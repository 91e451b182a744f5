package pipeline

import (
	"context"
	"strings"
)

func planDownload(ctx context.Context, d Downloader) (DownloadReport, error) {
	if planner, ok := d.(DownloadPlanner); ok {
		return planner.PlanDownload(ctx)
	}
	return DownloadReport{ByKind: map[FileKind]KindCount{}}, nil
}

func planProcess(ctx context.Context, p Processor, manifest *Manifest) (ProcessReport, error) {
	if planner, ok := p.(ProcessPlanner); ok {
		return planner.PlanProcess(ctx, manifest)
	}
	report := ProcessReport{}
	if manifest == nil {
		return report, nil
	}
	for _, entry := range manifest.Entries {
		report.Items = append(report.Items, Ok(entry.LocalPath, Artifact{
			SourcePath: entry.LocalPath,
			SourceName: entry.Name,
			Kind:       entry.Kind,
			Title:      strings.TrimSuffix(entry.Name, extOf(entry.Name)),
		}))
	}
	return report, nil
}

func planIngest(ctx context.Context, i Ingestor, artifacts *ArtifactSet) (IngestReport, error) {
	if planner, ok := i.(IngestPlanner); ok {
		return planner.PlanIngest(ctx, artifacts)
	}
	report := IngestReport{}
	if artifacts == nil {
		return report, nil
	}
	for _, artifact := range artifacts.Artifacts {
		key := artifact.Path
		if key == "" {
			key = artifact.SourcePath
		}
		report.Items = append(report.Items, Ok(key, IngestRecord{
			ArtifactPath: artifact.Path,
			SourcePath:   artifact.SourcePath,
		}))
	}
	return report, nil
}

func extOf(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return ""
	}
	return name[idx:]
}

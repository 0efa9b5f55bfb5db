package store

// FileInfo holds the tracked mtime and size for an imported file.
type FileInfo struct {
	MtimeNs    int64
	SizeBytes  int64
	AnalysisID string
}

// GetTrackedFiles returns a map of file_path -> FileInfo for all tracked files.
func (s *Store) GetTrackedFiles() (map[string]FileInfo, error) {
	rows, err := s.db.Query("SELECT file_path, mtime_ns, size_bytes, COALESCE(analysis_id, '') FROM file_tracker")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes, &fi.AnalysisID); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// TrackFile records that path was imported as analysisID.
func (s *Store) TrackFile(path string, fi FileInfo) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO file_tracker (file_path, mtime_ns, size_bytes, analysis_id)
		VALUES (?, ?, ?, ?)`, path, fi.MtimeNs, fi.SizeBytes, fi.AnalysisID)
	return err
}

// DeleteFileTracker removes a file tracking entry.
func (s *Store) DeleteFileTracker(path string) error {
	_, err := s.db.Exec("DELETE FROM file_tracker WHERE file_path = ?", path)
	return err
}

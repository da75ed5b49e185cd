//go:build windows

package watch

import (
	"golang.org/x/sys/windows"
)

// fileID identifies a file across a rename on the same volume
type fileID struct {
	dev uint64
	ino uint64
}

func statID(path string) (fileID, bool, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fileID{}, false, err
	}
	h, err := windows.CreateFile(p, 0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil, windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS|windows.FILE_FLAG_OPEN_REPARSE_POINT, 0)
	if err != nil {
		return fileID{}, false, err
	}
	defer windows.CloseHandle(h)

	var info windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(h, &info); err != nil {
		return fileID{}, false, err
	}
	id := fileID{
		dev: uint64(info.VolumeSerialNumber),
		ino: uint64(info.FileIndexHigh)<<32 | uint64(info.FileIndexLow),
	}
	return id, info.FileAttributes&windows.FILE_ATTRIBUTE_DIRECTORY != 0, nil
}

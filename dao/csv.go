package dao

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/pkg/logging"
)

// CSV 文件格式（无表头，逗号分隔，MovieLens 课程数据格式）：
//
//	movie-tags.csv  itemID,tag
//	ratings.csv     userID,itemID,rating   rating 为空表示评分已撤回
//
// 以 '#' 开头的行视为注释。

// LoadCSV 从标签与评分文件加载 MemoryDAO；ratingsPath 为空时只加载标签。
func LoadCSV(tagsPath, ratingsPath string) (*MemoryDAO, error) {
	d := NewMemoryDAO()
	log := logging.Component("dao")

	n, err := readFile(tagsPath, func(r io.Reader) (int, error) { return ReadTags(d, r) })
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", tagsPath).Int("rows", n).Msg("tags loaded")

	if ratingsPath == "" {
		return d, nil
	}
	n, err = readFile(ratingsPath, func(r io.Reader) (int, error) { return ReadRatings(d, r) })
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", ratingsPath).Int("rows", n).Msg("ratings loaded")
	return d, nil
}

func readFile(path string, fn func(io.Reader) (int, error)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("dao: open %s: %w", path, err)
	}
	defer f.Close()
	n, err := fn(f)
	if err != nil {
		return 0, fmt.Errorf("dao: read %s: %w", path, err)
	}
	return n, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// ReadTags 读取 itemID,tag 行写入 d，返回读取的行数。
func ReadTags(d *MemoryDAO, r io.Reader) (int, error) {
	cr := newReader(r)
	rows := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if len(rec) < 2 {
			return rows, invalidRow(cr, "want itemID,tag")
		}
		itemID, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			return rows, invalidRow(cr, "bad item id "+strconv.Quote(rec[0]))
		}
		tag := strings.TrimSpace(rec[1])
		if tag == "" {
			d.AddItem(itemID)
		} else {
			d.AddTags(itemID, tag)
		}
		rows++
	}
}

// ReadRatings 读取 userID,itemID,rating 行写入 d，返回读取的行数。
func ReadRatings(d *MemoryDAO, r io.Reader) (int, error) {
	cr := newReader(r)
	rows := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if len(rec) < 2 {
			return rows, invalidRow(cr, "want userID,itemID,rating")
		}
		userID, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			return rows, invalidRow(cr, "bad user id "+strconv.Quote(rec[0]))
		}
		itemID, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err != nil {
			return rows, invalidRow(cr, "bad item id "+strconv.Quote(rec[1]))
		}

		rating := core.Rating{UserID: userID, ItemID: itemID}
		raw := ""
		if len(rec) > 2 {
			raw = strings.TrimSpace(rec[2])
		}
		if raw == "" {
			rating.Retracted = true
		} else {
			v, err := strconv.ParseFloat(raw, 64)
			// ParseFloat 接受 NaN/Inf，这类值会污染画像均值
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return rows, invalidRow(cr, "bad rating "+strconv.Quote(raw))
			}
			rating.Value = v
		}
		d.AddRating(rating)
		rows++
	}
}

func invalidRow(cr *csv.Reader, msg string) error {
	line, _ := cr.FieldPos(0)
	return core.NewDomainErrorf(core.ModuleDAO, core.ErrorCodeInvalidInput, "dao: line %d: %s", line, msg)
}

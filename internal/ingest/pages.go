package ingest

import (
	"bytes"
	"errors"
	"fmt"

	gopdf "github.com/VantageDataChat/GoPDF2"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	rpdf "rsc.io/pdf"
)

type pageCounter struct {
	name  string
	count func(data []byte) (int, error)
}

// pageCounters are tried in order; each reader tolerates different kinds of
// damaged files, so the first positive answer wins.
var pageCounters = []pageCounter{
	{"rsc.io/pdf", countRSC},
	{"ledongthuc/pdf", countLedongthuc},
	{"pdfcpu", countPDFCPU},
	{"gopdf", gopdf.GetSourcePDFPageCountFromBytes},
}

// CountPages returns the page count of an in-memory PDF.
func CountPages(data []byte) (int, error) {
	var errs []error
	for _, c := range pageCounters {
		n, err := safeCount(c, data)
		if err == nil && n > 0 {
			return n, nil
		}
		if err == nil {
			err = errors.New("no pages")
		}
		errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
	}
	return 0, errors.Join(errs...)
}

// safeCount turns reader panics on malformed input into errors.
func safeCount(c pageCounter, data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("panic: %v", r)
		}
	}()
	return c.count(data)
}

func countRSC(data []byte) (int, error) {
	doc, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return doc.NumPage(), nil
}

func countLedongthuc(data []byte) (int, error) {
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

func countPDFCPU(data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
}
